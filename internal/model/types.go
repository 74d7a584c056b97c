package model

import "time"

// User is the public identity record returned to callers. It never carries
// credentials or the federated subject id.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// UserRecord is the stored form of a user.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	Avatar       string
	FederatedID  string
	PasswordHash string
	CreatedAt    int64
}

func (u UserRecord) Public() User {
	return User{ID: u.ID, Email: u.Email, Name: u.Name, Avatar: u.Avatar}
}

type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type ContentType string

const (
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
	ContentText  ContentType = "text"
)

// ContentTypes lists every supported type in display order.
var ContentTypes = []ContentType{ContentImage, ContentVideo, ContentAudio, ContentText}

func (t ContentType) Valid() bool {
	switch t {
	case ContentImage, ContentVideo, ContentAudio, ContentText:
		return true
	}
	return false
}

// Visual reports whether markers for this type carry a bounding region.
func (t ContentType) Visual() bool {
	return t == ContentImage || t == ContentVideo
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityForScore maps a scan confidence score onto marker severity.
func SeverityForScore(score float64) Severity {
	switch {
	case score > 70:
		return SeverityHigh
	case score > 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Region is a bounding box in percent of the media dimensions.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Marker struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    *Region  `json:"location,omitempty"`
}

type ScanResult struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	ContentType      ContentType `json:"contentType"`
	OriginalContent  string      `json:"originalContent"`
	ScanDate         time.Time   `json:"scanDate"`
	IsDeepfake       bool        `json:"isDeepfake"`
	ConfidenceScore  float64     `json:"confidenceScore"`
	DetectedMarkers  []Marker    `json:"detectedMarkers"`
	ProcessingTimeMs int64       `json:"processingTime"`
}

// VerdictCounts splits scans of one content type by verdict.
type VerdictCounts struct {
	Authentic int `json:"authentic"`
	Deepfake  int `json:"deepfake"`
}

// Stats summarizes a user's scan history for the dashboard.
type Stats struct {
	TotalScans         int                           `json:"totalScans"`
	DeepfakesDetected  int                           `json:"deepfakesDetected"`
	DeepfakePercentage float64                       `json:"deepfakePercentage"`
	ByContentType      map[ContentType]VerdictCounts `json:"byContentType"`
	LastScan           *time.Time                    `json:"lastScan"`
}
