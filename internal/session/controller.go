// Package session holds the client-side identity: the signed-in user and
// token, restored from and persisted to a Storage across process restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"deepfake-guard/internal/auth"
	"deepfake-guard/internal/model"
)

const (
	KeyUser  = "user"
	KeyToken = "token"
)

type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
	StatusError         Status = "error"
)

// State is a point-in-time copy of the controller.
type State struct {
	Status  Status
	User    *model.User
	Token   string
	Error   string
	Loading bool
}

// Authenticated reports whether a user is held, regardless of a pending
// error message.
func (s State) Authenticated() bool { return s.User != nil }

// Authenticator is the identity backend the controller delegates to. Both the
// in-process auth service and the HTTP client satisfy it.
type Authenticator interface {
	Register(ctx context.Context, email, password, name string) (model.AuthResult, error)
	Login(ctx context.Context, email, password string) (model.AuthResult, error)
	FederatedLogin(ctx context.Context, credential string) (model.AuthResult, error)
	Logout(ctx context.Context) error
}

// TokenVerifier is optionally implemented by an Authenticator.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (model.User, error)
}

type Options struct {
	// Decoder, when set, reads the picture claim of a federated credential so
	// it can be shown before the backend copy of the user catches up.
	Decoder auth.IdentityDecoder
	Logger  *slog.Logger
}

// Controller is safe for concurrent State reads. Overlapping Login, Register
// and Logout calls are not serialized; callers must not issue them at the
// same time.
type Controller struct {
	backend Authenticator
	storage Storage
	decoder auth.IdentityDecoder
	logger  *slog.Logger

	mu      sync.Mutex
	status  Status
	user    *model.User
	token   string
	errMsg  string
	loading bool
}

func NewController(backend Authenticator, storage Storage, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend: backend,
		storage: storage,
		decoder: opts.Decoder,
		logger:  logger.With("component", "session"),
		status:  StatusUninitialized,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Status:  c.status,
		Token:   c.token,
		Error:   c.errMsg,
		Loading: c.loading,
	}
	if c.user != nil {
		u := *c.user
		st.User = &u
	}
	return st
}

// Restore reads the persisted session without asking the backend whether the
// token is still good. Malformed or partial entries are removed and the
// controller ends anonymous.
func (c *Controller) Restore() State {
	c.begin(StatusLoading)

	rawUser, hasUser := c.storage.Get(KeyUser)
	token, hasToken := c.storage.Get(KeyToken)

	var user model.User
	ok := hasUser && hasToken && strings.TrimSpace(token) != ""
	if ok {
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.ID == "" {
			c.logger.Warn("discarding malformed persisted session", "err", err)
			ok = false
		}
	}
	if !ok {
		if hasUser || hasToken {
			c.clearStorage()
		}
		c.finish(func() { c.setAnonymousLocked() })
		return c.State()
	}

	c.finish(func() { c.setAuthenticatedLocked(user, token) })
	return c.State()
}

// Revalidate asks the backend to confirm the held token. An InvalidToken
// answer drops the session; other failures are recorded and leave it alone.
// Backends without token verification are trusted as-is.
func (c *Controller) Revalidate(ctx context.Context) error {
	verifier, ok := c.backend.(TokenVerifier)
	if !ok {
		return nil
	}
	st := c.State()
	if st.User == nil {
		return nil
	}

	c.begin(StatusLoading)
	user, err := verifier.VerifyToken(ctx, st.Token)
	switch {
	case errors.Is(err, model.ErrInvalidToken):
		c.clearStorage()
		c.finish(func() {
			c.setAnonymousLocked()
			c.errMsg = "session expired, please sign in again"
			c.status = StatusError
		})
		return err
	case err != nil:
		c.fail(err)
		return err
	}
	c.persist(user, st.Token)
	c.finish(func() { c.setAuthenticatedLocked(user, st.Token) })
	return nil
}

func (c *Controller) Login(ctx context.Context, email, password string) error {
	return c.authenticate(func() (model.AuthResult, error) {
		return c.backend.Login(ctx, email, password)
	})
}

func (c *Controller) Register(ctx context.Context, email, password, name string) error {
	return c.authenticate(func() (model.AuthResult, error) {
		return c.backend.Register(ctx, email, password, name)
	})
}

func (c *Controller) FederatedLogin(ctx context.Context, credential string) error {
	return c.authenticate(func() (model.AuthResult, error) {
		res, err := c.backend.FederatedLogin(ctx, credential)
		if err != nil || c.decoder == nil {
			return res, err
		}
		if id, derr := c.decoder.Decode(ctx, credential); derr == nil && id.Picture != "" {
			res.User.Avatar = id.Picture
		}
		return res, nil
	})
}

// Logout clears the persisted session once the backend agrees. A backend
// failure is recorded and the session is kept.
func (c *Controller) Logout(ctx context.Context) error {
	c.begin(StatusLoading)
	if err := c.backend.Logout(ctx); err != nil {
		c.fail(err)
		return err
	}
	c.clearStorage()
	c.finish(func() { c.setAnonymousLocked() })
	return nil
}

// ClearError drops the error message. Authentication is unchanged.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
	if c.status == StatusError {
		c.status = c.restingStatusLocked()
	}
}

func (c *Controller) authenticate(call func() (model.AuthResult, error)) error {
	c.begin(StatusLoading)
	res, err := call()
	if err != nil {
		c.fail(err)
		return err
	}
	c.persist(res.User, res.Token)
	c.finish(func() { c.setAuthenticatedLocked(res.User, res.Token) })
	return nil
}

func (c *Controller) begin(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.errMsg = ""
	c.loading = true
}

func (c *Controller) finish(apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	apply()
	c.loading = false
}

func (c *Controller) fail(err error) {
	c.finish(func() {
		c.errMsg = err.Error()
		c.status = StatusError
	})
}

func (c *Controller) restingStatusLocked() Status {
	if c.user != nil {
		return StatusAuthenticated
	}
	return StatusAnonymous
}

func (c *Controller) setAuthenticatedLocked(user model.User, token string) {
	c.user = &user
	c.token = token
	c.errMsg = ""
	c.status = StatusAuthenticated
}

func (c *Controller) setAnonymousLocked() {
	c.user = nil
	c.token = ""
	c.status = StatusAnonymous
}

// persist failures are logged; the in-memory session still holds. A write
// that fails clears both keys so a later Restore never pairs the new user
// with an older token.
func (c *Controller) persist(user model.User, token string) {
	data, err := json.Marshal(user)
	if err != nil {
		c.logger.Error("marshal session user", "err", err)
		c.clearStorage()
		return
	}
	if err := c.storage.SetAll(map[string]string{KeyUser: string(data), KeyToken: token}); err != nil {
		c.logger.Error("persist session", "err", err)
		c.clearStorage()
	}
}

func (c *Controller) clearStorage() {
	if err := c.storage.Delete(KeyUser, KeyToken); err != nil {
		c.logger.Error("clear persisted session", "err", err)
	}
}
