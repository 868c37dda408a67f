package accounts

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 10
	// MaxPasswordLength bounds password size before hashing.
	MaxPasswordLength = 100

	minSignupAge = 18
	maxSignupAge = 120

	dateLayout = "2006-01-02"
)

// AuthController exposes the signup and login flows over HTTP.
type AuthController struct {
	Flow   *RegistrationFlow
	Auth   *Authenticator
	Repo   RepositoryManager
	Logger Logger
}

// AuthControllerOption customizes controller construction.
type AuthControllerOption func(*AuthController)

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

// NewAuthController wires the HTTP surface over the flow collaborators.
func NewAuthController(flow *RegistrationFlow, auth *Authenticator, repo RepositoryManager, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Flow:   flow,
		Auth:   auth,
		Repo:   repo,
		Logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// RegisterAuthRoutes mounts the signup, verification, and login endpoints.
// The protected endpoints take the session middleware as an argument so the
// caller controls token extraction.
func (a *AuthController) RegisterAuthRoutes(app fiber.Router, protected fiber.Handler) {
	auth := app.Group("/auth")
	auth.Post("/signup", a.Signup)
	auth.Post("/verify-otp", a.VerifyOTP)
	auth.Post("/resend-otp", a.ResendOTP)
	auth.Post("/login", a.Login)
	auth.Get("/me", protected, a.Me)

	api := app.Group("/api", protected)
	api.Get("/profile", a.Profile)
	api.Put("/profile", a.UpdateProfile)
	api.Get("/all-users", a.ListUsers)
}

// SignupRequest is the payload for POST /auth/signup.
type SignupRequest struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	DateOfBirth      string `json:"date_of_birth"`
	OrganizationType string `json:"organization_type"`
	OrganizationName string `json:"organization_name"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirm_password"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.FullName,
			validation.Required,
			validation.Length(1, 255),
		),
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.DateOfBirth,
			validation.Required,
			validation.By(ValidateDateOfBirth),
		),
		validation.Field(
			&r.OrganizationType,
			validation.Required,
			validation.In(OrganizationTypes()...),
		),
		validation.Field(
			&r.OrganizationName,
			validation.Length(0, 255),
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(MinPasswordLength, MaxPasswordLength),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// VerifyOTPRequest is the payload for POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.OTP,
			validation.Required,
			validation.Length(OTPLength, OTPLength),
			is.Digit,
		),
	)
}

// ResendOTPRequest is the payload for POST /auth/resend-otp.
type ResendOTPRequest struct {
	Email string `json:"email"`
}

func (r ResendOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// UpdateProfileRequest is the payload for PUT /api/profile. Email and
// credentials are immutable here.
type UpdateProfileRequest struct {
	FullName         string `json:"full_name"`
	OrganizationType string `json:"organization_type"`
	OrganizationName string `json:"organization_name"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.FullName,
			validation.Required,
			validation.Length(1, 255),
		),
		validation.Field(
			&r.OrganizationType,
			validation.Required,
			validation.In(OrganizationTypes()...),
		),
		validation.Field(
			&r.OrganizationName,
			validation.Length(0, 255),
		),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateDateOfBirth checks the YYYY-MM-DD format and the accepted age
// range.
func ValidateDateOfBirth(value any) error {
	s, _ := value.(string)
	dob, err := time.Parse(dateLayout, s)
	if err != nil {
		return errors.New("must be a valid date in YYYY-MM-DD format")
	}
	age := yearsBetween(dob, time.Now())
	if age < minSignupAge {
		return fmt.Errorf("must be at least %d years old", minSignupAge)
	}
	if age > maxSignupAge {
		return errors.New("must be a valid date of birth")
	}
	return nil
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.YearDay() < from.YearDay() {
		years--
	}
	return years
}

// sessionPayload is the JSON shape shared by verification and login
// responses.
type sessionPayload struct {
	Message     string      `json:"message,omitempty"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        userSummary `json:"user"`
}

type userSummary struct {
	Email            string           `json:"email"`
	FullName         string           `json:"full_name"`
	OrganizationType OrganizationType `json:"organization_type"`
}

func newSessionPayload(message string, session *VerifiedSession) sessionPayload {
	return sessionPayload{
		Message:     message,
		AccessToken: session.Token,
		TokenType:   "bearer",
		User: userSummary{
			Email:            session.User.Email,
			FullName:         session.User.FullName,
			OrganizationType: session.User.OrganizationType,
		},
	}
}

// Signup handles POST /auth/signup.
func (a *AuthController) Signup(c *fiber.Ctx) error {
	payload := new(SignupRequest)
	if err := c.BodyParser(payload); err != nil {
		return malformedBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	// Validate guarantees the layout parses.
	dob, _ := time.Parse(dateLayout, payload.DateOfBirth)

	receipt, err := a.Flow.Signup(c.Context(), SignupInput{
		FullName:         payload.FullName,
		Email:            payload.Email,
		DateOfBirth:      dob,
		OrganizationType: payload.OrganizationType,
		OrganizationName: payload.OrganizationName,
		Password:         payload.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":            "Verification code sent to your email",
		"email":              receipt.Email,
		"expires_in_minutes": receipt.ExpiresInMinutes,
	})
}

// VerifyOTP handles POST /auth/verify-otp.
func (a *AuthController) VerifyOTP(c *fiber.Ctx) error {
	payload := new(VerifyOTPRequest)
	if err := c.BodyParser(payload); err != nil {
		return malformedBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	session, err := a.Flow.VerifyOTP(c.Context(), payload.Email, payload.OTP)
	if err != nil {
		return err
	}

	return c.JSON(newSessionPayload("Email verified successfully", session))
}

// ResendOTP handles POST /auth/resend-otp.
func (a *AuthController) ResendOTP(c *fiber.Ctx) error {
	payload := new(ResendOTPRequest)
	if err := c.BodyParser(payload); err != nil {
		return malformedBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	receipt, err := a.Flow.Resend(c.Context(), payload.Email)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":            "New verification code sent to your email",
		"email":              receipt.Email,
		"expires_in_minutes": receipt.ExpiresInMinutes,
	})
}

// Login handles POST /auth/login.
func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return malformedBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	session, err := a.Auth.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(newSessionPayload("", session))
}

// mePayload is the identity view served by /auth/me: profile fields only,
// no internal identifiers or record timestamps. The fuller record stays on
// /api/profile.
type mePayload struct {
	Email            string           `json:"email"`
	FullName         string           `json:"full_name"`
	DateOfBirth      *time.Time       `json:"date_of_birth,omitempty"`
	OrganizationType OrganizationType `json:"organization_type"`
	OrganizationName string           `json:"organization_name,omitempty"`
	EmailVerified    bool             `json:"is_email_verified"`
	Active           bool             `json:"is_active"`
}

// Me handles GET /auth/me.
func (a *AuthController) Me(c *fiber.Ctx) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(mePayload{
		Email:            user.Email,
		FullName:         user.FullName,
		DateOfBirth:      user.DateOfBirth,
		OrganizationType: user.OrganizationType,
		OrganizationName: user.OrganizationName,
		EmailVerified:    user.EmailVerified,
		Active:           user.Active,
	})
}

// Profile handles GET /api/profile.
func (a *AuthController) Profile(c *fiber.Ctx) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /api/profile.
func (a *AuthController) UpdateProfile(c *fiber.Ctx) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	payload := new(UpdateProfileRequest)
	if err := c.BodyParser(payload); err != nil {
		return malformedBody(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	user.FullName = payload.FullName
	user.OrganizationType = payload.OrganizationType
	user.OrganizationName = payload.OrganizationName

	updated, err := a.Repo.Users().Update(c.Context(), user)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

// ListUsers handles GET /api/all-users.
func (a *AuthController) ListUsers(c *fiber.Ctx) error {
	users, err := a.Repo.Users().List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"total": len(users),
		"users": users,
	})
}

func malformedBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body").
		WithCode(goerrors.CodeBadRequest).
		WithTextCode("MALFORMED_BODY")
}

// ErrorHandler maps flow errors onto HTTP responses. Designed to be
// installed as the fiber app level error handler.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return func(c *fiber.Ctx, err error) error {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": formatValidationErrors(verrs),
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiberErr.Message,
			})
		}

		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			logger.Error("unhandled error at boundary", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "An unexpected server error occurred",
			})
		}

		status := statusForError(richErr)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", "error", richErr.Message, "category", richErr.Category)
			return c.Status(status).JSON(fiber.Map{
				"error": "An unexpected server error occurred",
			})
		}

		body := fiber.Map{"error": richErr.Message}
		if len(richErr.Metadata) > 0 {
			body["metadata"] = richErr.Metadata
		}
		return c.Status(status).JSON(body)
	}
}

func statusForError(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		if richErr.Code != 0 {
			return richErr.Code
		}
		return fiber.StatusBadRequest
	default:
		if richErr.Code != 0 {
			return richErr.Code
		}
		return fiber.StatusInternalServerError
	}
}

func formatValidationErrors(errs validation.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for field, ferr := range errs {
		out[field] = ferr.Error()
	}
	return out
}
