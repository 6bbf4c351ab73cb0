package controllers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/avolkov/inkwell/middleware"
	"github.com/avolkov/inkwell/models"
	"github.com/avolkov/inkwell/utils"
)

func sessionCookieFrom(w *http.Response) *http.Cookie {
	for _, c := range w.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterCreatesAccountAndLogsIn(t *testing.T) {
	r, db := newTestApp(t)

	form := url.Values{
		"username": {"newcomer"},
		"email":    {"newcomer@example.com"},
		"password": {"pass-123"},
		"confirm":  {"pass-123"},
	}
	w := postForm(r, "/auth/register/", form)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	var user models.User
	if err := db.Where("username = ?", "newcomer").First(&user).Error; err != nil {
		t.Fatalf("registered user not stored: %v", err)
	}
	if user.Email != "newcomer@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.PasswordHash == "pass-123" || user.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
	if !utils.CheckPassword(user.PasswordHash, "pass-123") {
		t.Error("stored hash does not verify the password")
	}

	cookie := sessionCookieFrom(w.Result())
	if cookie == nil || cookie.Value == "" {
		t.Fatal("registration did not start a session")
	}
	claims, err := utils.ParseToken(cookie.Value)
	if err != nil {
		t.Fatalf("session cookie is not a valid token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user = %d, want %d", claims.UserID, user.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, db := newTestApp(t)
	createUser(t, db, "taken")

	base := func() url.Values {
		return url.Values{
			"username": {"someone"},
			"email":    {""},
			"password": {"pass-123"},
			"confirm":  {"pass-123"},
		}
	}
	cases := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"username too short", func(f url.Values) { f.Set("username", "x") }},
		{"username too long", func(f url.Values) { f.Set("username", strings.Repeat("a", 16)) }},
		{"username bad characters", func(f url.Values) { f.Set("username", "who am i") }},
		{"password mismatch", func(f url.Values) { f.Set("confirm", "pass-124") }},
		{"password too short", func(f url.Values) { f.Set("password", "ab1"); f.Set("confirm", "ab1") }},
		{"duplicate username", func(f url.Values) { f.Set("username", "taken") }},
	}
	for _, tc := range cases {
		form := base()
		tc.mutate(form)
		w := postForm(r, "/auth/register/", form)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 (re-rendered form)", tc.name, w.Code)
		}
		if sessionCookieFrom(w.Result()) != nil {
			t.Errorf("%s: session started for rejected registration", tc.name)
		}
	}

	var n int64
	db.Model(&models.User{}).Count(&n)
	if n != 1 {
		t.Errorf("user count = %d, want only the pre-existing account", n)
	}
}

func TestLoginSuccess(t *testing.T) {
	r, db := newTestApp(t)
	createUser(t, db, "resident")

	form := url.Values{
		"username": {"resident"},
		"password": {"secret-pw1"},
		"next":     {"/create/"},
	}
	w := postForm(r, "/auth/login/", form)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/create/" {
		t.Errorf("Location = %q, want the next target", loc)
	}

	cookie := sessionCookieFrom(w.Result())
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login did not set the session cookie")
	}

	// The session actually works against a protected route.
	if w := get(r, "/create/", cookie); w.Code != http.StatusOK {
		t.Errorf("/create/ with fresh session: status = %d, want 200", w.Code)
	}
}

func TestLoginFailure(t *testing.T) {
	r, db := newTestApp(t)
	createUser(t, db, "resident")

	cases := map[string]url.Values{
		"wrong password": {"username": {"resident"}, "password": {"not-it"}},
		"unknown user":   {"username": {"stranger"}, "password": {"secret-pw1"}},
	}
	for name, form := range cases {
		w := postForm(r, "/auth/login/", form)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 (re-rendered form)", name, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Invalid username or password") {
			t.Errorf("%s: missing error message", name)
		}
		if sessionCookieFrom(w.Result()) != nil {
			t.Errorf("%s: session cookie set on failed login", name)
		}
	}
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	r, db := newTestApp(t)
	createUser(t, db, "resident")

	for _, next := range []string{"https://evil.example", "//evil.example", `/\evil.example`, ""} {
		form := url.Values{
			"username": {"resident"},
			"password": {"secret-pw1"},
			"next":     {next},
		}
		w := postForm(r, "/auth/login/", form)
		if w.Code != http.StatusFound {
			t.Fatalf("next=%q: status = %d, want 302", next, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/" {
			t.Errorf("next=%q: Location = %q, want /", next, loc)
		}
	}
}

func TestLoginFormKeepsNext(t *testing.T) {
	r, _ := newTestApp(t)
	w := get(r, "/auth/login/?next=%2Fcreate%2F")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `value="/create/"`) {
		t.Error("login form lost the next parameter")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	r, db := newTestApp(t)
	user := createUser(t, db, "leaver")
	cookie := sessionCookie(t, user)

	// Sanity: the session works before logout.
	if w := get(r, "/create/", cookie); w.Code != http.StatusOK {
		t.Fatalf("pre-logout /create/: status = %d, want 200", w.Code)
	}

	w := postForm(r, "/auth/logout/", url.Values{}, cookie)
	if w.Code != http.StatusFound {
		t.Fatalf("logout status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	cleared := sessionCookieFrom(w.Result())
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("logout did not clear the session cookie")
	}

	// The old token is blacklisted even if a client replays it.
	w = get(r, "/create/", cookie)
	if w.Code != http.StatusFound {
		t.Fatalf("post-logout /create/: status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, middleware.LoginPath) {
		t.Errorf("post-logout redirect = %q, want login page", loc)
	}
}

func TestLogoutRequiresLogin(t *testing.T) {
	r, _ := newTestApp(t)
	w := postForm(r, "/auth/logout/", url.Values{})
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, middleware.LoginPath) {
		t.Errorf("Location = %q, want login page", loc)
	}
}

func TestOAuthRedirectWithoutConfig(t *testing.T) {
	r, _ := newTestApp(t)
	// No GitHub credentials in the test environment; the login page explains.
	w := get(r, "/auth/oauth/github/login/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Error("missing not-configured message")
	}
}
