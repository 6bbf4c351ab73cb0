package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/avolkov/inkwell/config"
	"github.com/avolkov/inkwell/middleware"
	"github.com/avolkov/inkwell/models"
	"github.com/avolkov/inkwell/utils"
)

// AuthController handles login, registration, logout and GitHub social login.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// LoginForm renders the login page, keeping the next parameter for the
// post-login redirect.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	a.renderLogin(ctx, ctx.Query(middleware.NextParam), "", "")
}

// Login authenticates a username/password pair, sets the session cookie and
// redirects to the next target.
func (a *AuthController) Login(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.PostForm("username"))
	password := ctx.PostForm("password")
	next := ctx.PostForm(middleware.NextParam)

	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		a.renderLogin(ctx, next, username, "Invalid username or password.")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		a.renderLogin(ctx, next, username, "Invalid username or password.")
		return
	}

	if err := a.startSession(ctx, user); err != nil {
		a.renderLogin(ctx, next, username, "Could not start a session, try again.")
		return
	}

	ctx.Redirect(http.StatusFound, safeNext(next))
}

// RegisterForm renders the registration page, with a captcha when enabled.
func (a *AuthController) RegisterForm(ctx *gin.Context) {
	a.renderRegister(ctx, "", "", "")
}

// Register creates a local account after validation and abuse checks, then
// logs the new user in.
func (a *AuthController) Register(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.PostForm("username"))
	email := strings.TrimSpace(ctx.PostForm("email"))
	password := ctx.PostForm("password")
	confirm := ctx.PostForm("confirm")

	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		a.renderRegister(ctx, username, email, "Registration is temporarily limited for your address, try again later.")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		a.renderRegister(ctx, username, email, "Too many attempts, wait a moment and try again.")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		a.renderRegister(ctx, username, email, "Daily registration limit reached for your address.")
		return
	}

	cfg := config.Get()
	if cfg.RegisterCaptchaEnabled {
		if !utils.VerifyCaptcha(ctx.PostForm("captcha_id"), ctx.PostForm("captcha_answer")) {
			utils.RegistrationFailRecord(ip)
			a.renderRegister(ctx, username, email, "Captcha answer was wrong.")
			return
		}
	}

	if l := len([]rune(username)); l < 2 || l > 15 || !validUsername(username) {
		a.renderRegister(ctx, username, email, "Username must be 2-15 characters: letters, digits or '-'.")
		return
	}
	if password != confirm {
		a.renderRegister(ctx, username, email, "Passwords do not match.")
		return
	}
	if len(password) < 6 || len(password) > 18 || !validPassword(password) {
		a.renderRegister(ctx, username, email, "Password must be 6-18 characters of letters, digits and -_. only.")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", username).First(&existing).Error; err == nil {
		a.renderRegister(ctx, username, email, "Username already exists.")
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		a.renderRegister(ctx, username, email, "Could not create the account, try again.")
		return
	}

	user := models.User{Username: username, Email: email, PasswordHash: hash}
	if err := a.db.Create(&user).Error; err != nil {
		a.renderRegister(ctx, username, email, "Could not create the account, try again.")
		return
	}

	utils.RegistrationDailyIncrement(ip)
	utils.InvalidateByPrefix("cache:stats")

	if err := a.startSession(ctx, user); err != nil {
		ctx.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// Logout blacklists the session token until its natural expiry and clears
// the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if value, ok := ctx.Get(middleware.ContextTokenKey); ok {
		if token, _ := value.(string); token != "" {
			expiresAt := time.Now().Add(time.Duration(config.Get().SessionHrs) * time.Hour)
			if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Time
			}
			utils.BlacklistToken(token, expiresAt)
		}
	}
	ctx.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	ctx.Redirect(http.StatusFound, "/")
}

// Captcha issues a fresh captcha challenge for the registration form.
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, image, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "captcha_image": image})
}

// OAuthRedirect sends the user to GitHub with a single-use state token.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	conf, err := a.oauthConfig()
	if err != nil {
		a.renderLogin(ctx, "", "", "GitHub login is not configured.")
		return
	}
	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, conf.AuthCodeURL(state))
}

// OAuthCallback exchanges the code, finds or creates the matching account
// and starts a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	if !utils.ConsumeState(ctx.Query("state")) {
		a.renderLogin(ctx, "", "", "Login attempt expired, try again.")
		return
	}

	conf, err := a.oauthConfig()
	if err != nil {
		a.renderLogin(ctx, "", "", "GitHub login is not configured.")
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	token, err := conf.Exchange(reqCtx, ctx.Query("code"))
	if err != nil {
		a.renderLogin(ctx, "", "", "GitHub did not accept the login, try again.")
		return
	}

	ghUser, err := fetchGitHubUser(reqCtx, conf, token)
	if err != nil {
		a.renderLogin(ctx, "", "", "Could not read your GitHub profile.")
		return
	}

	user, err := a.findOrCreateOAuthUser(ghUser)
	if err != nil {
		a.renderLogin(ctx, "", "", "Could not create the account, try again.")
		return
	}

	if err := a.startSession(ctx, *user); err != nil {
		a.renderLogin(ctx, "", "", "Could not start a session, try again.")
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// startSession issues a JWT and stores it in the session cookie.
func (a *AuthController) startSession(ctx *gin.Context, user models.User) error {
	cfg := config.Get()
	duration := time.Duration(cfg.SessionHrs) * time.Hour
	token, err := utils.GenerateToken(user.ID, user.Username, duration)
	if err != nil {
		return err
	}
	ctx.SetCookie(middleware.SessionCookieName, token, int(duration.Seconds()), "/", "", false, true)
	return nil
}

func (a *AuthController) oauthConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, errors.New("github oauth not configured")
	}
	base := cfg.OAuthRedirectBase
	if base == "" {
		base = cfg.BaseURL
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		Endpoint:     github.Endpoint,
		RedirectURL:  strings.TrimRight(base, "/") + "/auth/oauth/github/callback/",
		Scopes:       []string{"read:user", "user:email"},
	}, nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

func fetchGitHubUser(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*githubUser, error) {
	client := conf.Client(ctx, token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user endpoint returned %d", resp.StatusCode)
	}
	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	if u.Login == "" {
		return nil, errors.New("github user has no login")
	}
	return &u, nil
}

func (a *AuthController) findOrCreateOAuthUser(gh *githubUser) (*models.User, error) {
	providerID := fmt.Sprintf("%d", gh.ID)

	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", "github", providerID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:   a.ensureUniqueUsername(sanitizeUsername(gh.Login)),
		Email:      gh.Email,
		Provider:   "github",
		ProviderID: providerID,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	utils.InvalidateByPrefix("cache:stats")
	return &user, nil
}

// ensureUniqueUsername appends a numeric suffix until the name is free.
func (a *AuthController) ensureUniqueUsername(base string) string {
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 1; ; i++ {
		var existing models.User
		if err := a.db.Where("username = ?", candidate).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func sanitizeUsername(input string) string {
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len([]rune(s)) > 15 {
		s = string([]rune(s)[:15])
	}
	return s
}

// validUsername allows letters, digits and '-'.
func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// validPassword allows letters, digits and -_. only.
func validPassword(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// safeNext keeps redirects on this site; anything else falls back to the
// index page. Browsers treat both // and /\ as protocol-relative.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}

func (a *AuthController) renderLogin(ctx *gin.Context, next, username, errMsg string) {
	cfg := config.Get()
	ctx.HTML(http.StatusOK, "login.html", gin.H{
		"Next":          next,
		"Username":      username,
		"Error":         errMsg,
		"GitHubEnabled": cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "",
	})
}

func (a *AuthController) renderRegister(ctx *gin.Context, username, email, errMsg string) {
	data := gin.H{
		"Username": username,
		"Email":    email,
		"Error":    errMsg,
	}
	if config.Get().RegisterCaptchaEnabled {
		if id, image, err := utils.GenerateCaptcha(); err == nil {
			data["CaptchaID"] = id
			// template.URL keeps the data URI intact in the img src.
			data["CaptchaImage"] = template.URL(image)
		}
	}
	ctx.HTML(http.StatusOK, "register.html", data)
}
