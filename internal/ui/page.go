package ui

import (
	"errors"
	"net/url"
	"strings"

	"rules-chat/internal/client"
	"rules-chat/internal/session"
)

// Status es el estado local de un formulario.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

type Route string

const (
	RouteLogin          Route = "login"
	RouteSignup         Route = "signup"
	RouteChat           Route = "chat"
	RouteChangePassword Route = "change-password"
	RouteForgotPassword Route = "forgot-password"
	RouteResetPassword  Route = "reset-password"
	RouteVerify         Route = "verify"
	RouteQuit           Route = "quit"
)

// Navigator cambia la pagina activa.
type Navigator interface {
	Navigate(to Route)
}

// Router guarda la ruta actual. Las paginas navegan sobre el y el loop del CLI lo lee.
type Router struct {
	current Route
}

func NewRouter(start Route) *Router {
	return &Router{current: start}
}

func (r *Router) Navigate(to Route) {
	r.current = to
}

func (r *Router) Current() Route {
	return r.current
}

// StartRoute elige la pagina inicial: chat con sesion, login sin ella.
func StartRoute(store session.Store) Route {
	if _, ok := store.Token(); ok {
		return RouteChat
	}
	return RouteLogin
}

// Form es el estado comun a todas las paginas de formulario.
type Form struct {
	Status  Status
	Message string
}

func (f *Form) begin() {
	f.Status = StatusSubmitting
	f.Message = ""
}

func (f *Form) fail(msg string) {
	f.Status = StatusError
	f.Message = msg
}

func (f *Form) succeed(msg string) {
	f.Status = StatusSuccess
	f.Message = msg
}

// TokenFromLink acepta un link de verificacion o reseteo (con ?token=) o el token solo.
func TokenFromLink(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, "token=") {
		return input
	}
	raw := input
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(q.Get("token"))
}

// forceLogout maneja el 401: borra la sesion y vuelve a login.
func forceLogout(err error, store session.Store, nav Navigator) bool {
	if !errors.Is(err, client.ErrUnauthorized) {
		return false
	}
	_ = store.ClearToken()
	nav.Navigate(RouteLogin)
	return true
}

func displayError(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
