package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evasion-watch/evasion_watch/internal/audit"
	"github.com/evasion-watch/evasion_watch/internal/identity"
	"github.com/evasion-watch/evasion_watch/internal/mfa"
	"github.com/evasion-watch/evasion_watch/internal/session"
)

// Recorder appends audit entries.
type Recorder interface {
	Record(ctx context.Context, username, action, detail string)
}

// Profiles resolves the account behind a session.
type Profiles interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Handler exposes the login sequence: session start, password, code, logout.
type Handler struct {
	gate         *session.Gate
	profiles     Profiles
	signer       *Signer
	audit        Recorder
	secureCookie bool
}

// NewHandler wires the auth endpoints. secureCookie sets the Secure flag on
// the session cookie and is off only in development.
func NewHandler(gate *session.Gate, profiles Profiles, signer *Signer, audit Recorder, secureCookie bool) *Handler {
	return &Handler{gate: gate, profiles: profiles, signer: signer, audit: audit, secureCookie: secureCookie}
}

type sessionResponse struct {
	Token       string        `json:"token,omitempty"`
	SessionID   string        `json:"session_id"`
	Username    string        `json:"username,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	Email       string        `json:"email,omitempty"`
	State       session.State `json:"state"`
	ExpiresIn   int64         `json:"expires_in,omitempty"`
}

// StartSession creates an anonymous session and hands back its token.
func (h *Handler) StartSession(c *fiber.Ctx) error {
	s, err := h.gate.Start(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	token, err := h.signer.Sign(s.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	h.setCookie(c, token, h.signer.TTL())
	return c.Status(http.StatusCreated).JSON(sessionResponse{
		Token:     token,
		SessionID: s.ID,
		State:     s.State,
		ExpiresIn: int64(h.signer.TTL().Seconds()),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	State      session.State `json:"state"`
	CodeReused bool          `json:"code_reused"`
	Warning    string        `json:"warning,omitempty"`
}

// Login verifies the password and sends (or reuses) the one-time code.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password are required")
	}

	res, err := h.gate.Login(c.UserContext(), SessionID(c), req.Username, req.Password)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.NewError(http.StatusUnauthorized, "session expired, start a new one")
	case errors.Is(err, identity.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "user not found")
	case errors.Is(err, identity.ErrWrongSecret):
		return fiber.NewError(http.StatusUnauthorized, "incorrect password")
	case err != nil:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := loginResponse{State: res.Session.State, CodeReused: res.CodeReused}
	detail := "code sent"
	if res.CodeReused {
		detail = "code reused"
	}
	if res.DispatchErr != nil {
		resp.Warning = "the access code could not be delivered"
		detail = "code delivery failed"
	}
	h.audit.Record(c.UserContext(), res.Session.Username, audit.ActionLogin, detail)
	return c.Status(http.StatusOK).JSON(resp)
}

type codeRequest struct {
	Code string `json:"code"`
}

type codeResponse struct {
	Verdict mfa.Verdict   `json:"verdict,omitempty"`
	State   session.State `json:"state"`
	Message string        `json:"message,omitempty"`
}

// SubmitCode validates the emailed code for the current session.
func (h *Handler) SubmitCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	verdict, s, err := h.gate.SubmitCode(c.UserContext(), SessionID(c), req.Code)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.NewError(http.StatusUnauthorized, "session expired, start a new one")
	case errors.Is(err, session.ErrNotPending):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, mfa.ErrNotFound):
		return c.Status(http.StatusGone).JSON(codeResponse{State: s.State, Message: "no code on record, log in again"})
	case err != nil:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	switch verdict {
	case mfa.Accepted:
		h.audit.Record(c.UserContext(), s.Username, audit.ActionVerified, "")
		return c.Status(http.StatusOK).JSON(codeResponse{Verdict: verdict, State: s.State})
	case mfa.Expired:
		return c.Status(http.StatusGone).JSON(codeResponse{Verdict: verdict, State: s.State, Message: "code expired, log in again"})
	default:
		return c.Status(http.StatusUnauthorized).JSON(codeResponse{Verdict: verdict, State: s.State, Message: "incorrect code"})
	}
}

// Logout clears the session back to anonymous and drops the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	before, _ := h.gate.Get(c.UserContext(), SessionID(c))
	s, err := h.gate.Logout(c.UserContext(), SessionID(c))
	if errors.Is(err, session.ErrNotFound) {
		return fiber.NewError(http.StatusUnauthorized, "session expired, start a new one")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if before.Username != "" {
		h.audit.Record(c.UserContext(), before.Username, audit.ActionLogout, "")
	}
	h.setCookie(c, "", -time.Hour)
	return c.Status(http.StatusOK).JSON(sessionResponse{SessionID: s.ID, State: s.State})
}

// Me reports the state of the current session and, once a user is attached,
// the account's display name and contact address.
func (h *Handler) Me(c *fiber.Ctx) error {
	s, err := h.gate.Get(c.UserContext(), SessionID(c))
	if errors.Is(err, session.ErrNotFound) {
		return fiber.NewError(http.StatusUnauthorized, "session expired, start a new one")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	resp := sessionResponse{SessionID: s.ID, Username: s.Username, State: s.State}
	if s.UserID != "" {
		user, err := h.profiles.Get(c.UserContext(), s.UserID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		resp.DisplayName = user.DisplayName
		resp.Email = user.Email
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func (h *Handler) setCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
