package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
	"github.com/p-n-ai/pai-classroom/internal/notify"
)

const defaultResendCooldown = 2 * time.Minute

// Memberships lists a user's course relations. classroom.Store satisfies it.
type Memberships interface {
	ListCoursesByInstructor(ctx context.Context, userID string) ([]classroom.Course, error)
	ListProgressByUser(ctx context.Context, userID string) ([]classroom.CourseProgress, error)
}

// Mailer delivers notifications. *notify.Gateway satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

// SignupInput is the registration payload.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the credentials payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ServiceConfig holds dependencies for the account service.
type ServiceConfig struct {
	Store          Store
	Courses        Memberships
	Tokens         *Tokens
	Mail           Mailer
	Google         *GoogleAuth // nil disables Google sign-in
	VerifyURL      string      // the verification token is appended
	ResendCooldown time.Duration
}

// Service implements signup, login, verification and profile lookup.
type Service struct {
	store     Store
	courses   Memberships
	tokens    *Tokens
	mail      Mailer
	google    *GoogleAuth
	verifyURL string
	cooldown  time.Duration
	validate  *validator.Validate
	now       func() time.Time
}

// NewService creates a new account service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	mail := cfg.Mail
	if mail == nil {
		gw := notify.NewGateway()
		gw.Register(notify.ChannelEmail, notify.LogChannel{})
		mail = gw
	}
	cooldown := cfg.ResendCooldown
	if cooldown == 0 {
		cooldown = defaultResendCooldown
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	return &Service{
		store:     store,
		courses:   cfg.Courses,
		tokens:    cfg.Tokens,
		mail:      mail,
		google:    cfg.Google,
		verifyURL: cfg.VerifyURL,
		cooldown:  cooldown,
		validate:  v,
		now:       time.Now,
	}
}

// Store returns the underlying user store.
func (s *Service) Store() Store {
	return s.store
}

// Tokens returns the token issuer.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

// Signup registers an unverified email user and mails a verification link.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.BadRequest("User already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	u, err := s.store.CreateUser(ctx, User{
		Name:             strings.TrimSpace(in.Name),
		Email:            email,
		PasswordHash:     string(hash),
		VerifyToken:      uuid.NewString(),
		NextTokenRequest: now.Add(s.cooldown),
		CreatedAt:        now,
	})
	if errors.Is(err, ErrDuplicate) {
		return nil, apperr.BadRequest("User already exists")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	slog.Info("user registered", "user_id", u.ID)
	s.sendVerification(ctx, u)
	return inactive(u), nil
}

// Login checks email credentials. Unverified users get the inactive result
// instead of a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid Credentials")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u.PasswordHash == "" {
		return nil, apperr.Unauthorized("Invalid Credentials")
	}
	if !u.EmailVerified {
		return inactive(u), nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid Credentials")
	}
	return s.issue(u)
}

// Verify consumes a verification token and signs the user in.
func (s *Service) Verify(ctx context.Context, token string) (*AuthResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Invalid(apperr.FieldError{Param: "token", Msg: "Token is required"})
	}

	u, err := s.store.GetUserByVerifyToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.BadRequest("Invalid or expired token")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u.EmailVerified = true
	u.VerifyToken = ""
	u.NextTokenRequest = time.Time{}
	if u, err = s.store.UpdateUser(ctx, *u); err != nil {
		return nil, apperr.Internal(err)
	}
	slog.Info("email verified", "user_id", u.ID)
	return s.issue(u)
}

// ResendVerification issues a fresh verification token once the cooldown has passed.
func (s *Service) ResendVerification(ctx context.Context, email string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, apperr.Invalid(apperr.FieldError{Param: "email", Msg: "Please enter a valid email"})
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u.EmailVerified {
		return nil, apperr.BadRequest("Email already verified")
	}

	now := s.now()
	if now.Before(u.NextTokenRequest) {
		return nil, apperr.BadRequest("Please wait before requesting another email")
	}

	u.VerifyToken = uuid.NewString()
	u.NextTokenRequest = now.Add(s.cooldown)
	if u, err = s.store.UpdateUser(ctx, *u); err != nil {
		return nil, apperr.Internal(err)
	}
	s.sendVerification(ctx, u)
	return inactive(u), nil
}

// Me returns the caller's profile with the courses they created and joined.
func (s *Service) Me(ctx context.Context, identity string) (*Profile, error) {
	u, err := s.store.GetUser(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	p := &Profile{
		User:            *u,
		CoursesCreated:  []string{},
		CoursesEnrolled: map[string]string{},
	}
	if s.courses == nil {
		return p, nil
	}

	created, err := s.courses.ListCoursesByInstructor(ctx, identity)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, c := range created {
		p.CoursesCreated = append(p.CoursesCreated, c.ID)
	}

	enrolled, err := s.courses.ListProgressByUser(ctx, identity)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, pr := range enrolled {
		p.CoursesEnrolled[pr.Course] = pr.ID
	}
	return p, nil
}

// GoogleLoginURL returns the consent page URL for state.
func (s *Service) GoogleLoginURL(state string) (string, error) {
	if s.google == nil {
		return "", apperr.BadRequest("Google sign-in is not configured")
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleSignIn completes the OAuth flow. Existing Google users sign in,
// email users with the same address are linked, anyone else is created.
// Linking and creating require an address Google has verified.
func (s *Service) GoogleSignIn(ctx context.Context, code string) (*AuthResult, error) {
	if s.google == nil {
		return nil, apperr.BadRequest("Google sign-in is not configured")
	}
	if code == "" {
		return nil, apperr.BadRequest("Missing authorization code")
	}

	profile, err := s.google.Profile(ctx, code)
	if err != nil {
		slog.Warn("google sign-in failed", "error", err)
		return nil, apperr.Unauthorized("Google sign-in failed")
	}

	u, err := s.store.GetUserByGoogleID(ctx, profile.ID)
	if err == nil {
		return s.issue(u)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	if !profile.VerifiedEmail {
		slog.Warn("google sign-in with unverified email", "google_id", profile.ID)
		return nil, apperr.Unauthorized("Email not verified with Google")
	}

	email := normalizeEmail(profile.Email)
	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		existing.GoogleID = profile.ID
		existing.EmailVerified = true
		existing.VerifyToken = ""
		u, err = s.store.UpdateUser(ctx, *existing)
	case errors.Is(err, ErrNotFound):
		u, err = s.store.CreateUser(ctx, User{
			Name:          profile.Name,
			Email:         email,
			GoogleID:      profile.ID,
			EmailVerified: true,
			CreatedAt:     s.now(),
		})
		if err == nil {
			slog.Info("user registered", "user_id", u.ID, "provider", "google")
		}
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.issue(u)
}

// Authenticate resolves an access token to a user id.
func (s *Service) Authenticate(token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthorized("No token, authorization denied")
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return "", apperr.Unauthorized("Token is not valid")
	}
	return id, nil
}

func (s *Service) issue(u *User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{Token: token}, nil
}

func (s *Service) sendVerification(ctx context.Context, u *User) {
	link := s.verifyURL + u.VerifyToken
	err := s.mail.Send(ctx, notify.Message{
		Channel: notify.ChannelEmail,
		To:      u.Email,
		Name:    u.Name,
		Subject: "Verify your email",
		Text:    fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening %s\n", u.Name, link),
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p><a href="%s">Confirm your email address</a></p>`, u.Name, link),
	})
	if err != nil {
		// The user can ask for another mail once the cooldown passes.
		slog.Warn("verification mail failed", "user_id", u.ID, "error", err)
	}
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err)
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Param: fe.Field(), Msg: fieldMessage(fe)})
	}
	return apperr.Invalid(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		return "Name is required"
	case "email":
		return "Please enter a valid email"
	case "password":
		if fe.Tag() == "min" {
			return "Please enter a password with 6 or more characters"
		}
		return "Password required"
	}
	return "Invalid value"
}

func inactive(u *User) *AuthResult {
	next := u.NextTokenRequest
	return &AuthResult{Inactive: true, NextTokenRequest: &next}
}
