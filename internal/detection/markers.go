package detection

import "deepfake-guard/internal/model"

type markerSpec struct {
	Type        string
	Description string
}

// vocabulary holds the five signals each content type can report.
var vocabulary = map[model.ContentType][]markerSpec{
	model.ContentImage: {
		{"inconsistent_lighting", "Inconsistent lighting or shadows"},
		{"unnatural_skin", "Unnatural skin texture or coloring"},
		{"irregular_background", "Irregular background patterns"},
		{"blurry_areas", "Unusual blurry areas"},
		{"face_artifacts", "Artifacts around facial features"},
	},
	model.ContentVideo: {
		{"inconsistent_motion", "Inconsistent motion between frames"},
		{"unnatural_blinking", "Unnatural eye blinking patterns"},
		{"audio_mismatch", "Audio-visual synchronization issues"},
		{"irregular_background", "Background inconsistencies"},
		{"face_artifacts", "Facial boundary artifacts"},
	},
	model.ContentAudio: {
		{"unnatural_pauses", "Unnatural pauses or transitions"},
		{"voice_artifacts", "Digital artifacts in voice"},
		{"background_noise", "Inconsistent background noise"},
		{"breathing_patterns", "Abnormal breathing patterns"},
		{"accent_inconsistencies", "Accent or speech pattern inconsistencies"},
	},
	model.ContentText: {
		{"repetitive_patterns", "Repetitive phrases or structures"},
		{"inconsistent_style", "Inconsistent writing style"},
		{"factual_errors", "Factual inconsistencies or errors"},
		{"unusual_phrasing", "Unusual or awkward phrasing"},
		{"context_issues", "Contextual inconsistencies"},
	},
}

// MarkerCount is max(1, floor(score/20)) bounded by the vocabulary size.
func MarkerCount(ct model.ContentType, score float64) int {
	n := int(score / 20)
	if n < 1 {
		n = 1
	}
	if limit := len(vocabulary[ct]); n > limit {
		n = limit
	}
	return n
}

// generateMarkers draws MarkerCount distinct markers. Every marker shares the
// severity of the scan score; visual types get a random bounding region.
func (s *Service) generateMarkers(ct model.ContentType, score float64) []model.Marker {
	specs := vocabulary[ct]
	count := MarkerCount(ct, score)
	severity := model.SeverityForScore(score)

	s.rndMu.Lock()
	defer s.rndMu.Unlock()

	order := s.rnd.Perm(len(specs))
	markers := make([]model.Marker, 0, count)
	for _, idx := range order[:count] {
		m := model.Marker{
			Type:        specs[idx].Type,
			Description: specs[idx].Description,
			Severity:    severity,
		}
		if ct.Visual() {
			m.Location = &model.Region{
				X:      s.rnd.Intn(80),
				Y:      s.rnd.Intn(80),
				Width:  s.rnd.Intn(20) + 10,
				Height: s.rnd.Intn(20) + 10,
			}
		}
		markers = append(markers, m)
	}
	return markers
}
