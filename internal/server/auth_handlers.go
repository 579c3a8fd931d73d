package server

import (
	"fmt"
	"time"

	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer      = "chronicle-api"
	tokenAudience    = "chronicle-client"
	refreshTokenType = "refresh"
)

func (s *Server) accessTokenTTL() time.Duration {
	if s.config.AccessTokenTTL > 0 {
		return time.Duration(s.config.AccessTokenTTL) * time.Minute
	}
	return 30 * time.Minute
}

func (s *Server) refreshTokenTTL() time.Duration {
	if s.config.RefreshTokenTTL > 0 {
		return time.Duration(s.config.RefreshTokenTTL) * time.Hour
	}
	return 7 * 24 * time.Hour
}

// ObtainToken handles POST /api/token
// @Summary Obtain token pair
// @Description Authenticate with username and password, returning access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} object{access_token=string,refresh_token=string,is_staff=bool,first_name=string,last_name=string,user_id=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /token [post]
func (s *Server) ObtainToken(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	user, err := s.userRepo.GetByUsername(c.Context(), req.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if user == nil {
		observability.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		observability.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if !user.IsActive {
		observability.AuthFailures.WithLabelValues("inactive_user").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Account is deactivated"))
	}

	accessToken, err := s.generateToken(user.ID, user.Username, "", s.accessTokenTTL())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	refreshToken, err := s.generateToken(user.ID, user.Username, refreshTokenType, s.refreshTokenTTL())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	if err := s.userRepo.TouchLastLogin(c.Context(), user.ID, time.Now().UTC()); err != nil {
		// Login still succeeds; last_login is advisory.
		middleware.Logger.WarnContext(c.UserContext(),
			"failed to update last_login", "error", err)
	}

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"is_staff":      user.IsStaff,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"user_id":       user.ID,
	})
}

// RefreshToken handles POST /api/token/refresh
// @Summary Refresh access token
// @Description Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{refresh_token=string} true "Refresh token"
// @Success 200 {object} object{access_token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /token/refresh [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.RefreshToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Refresh token is required"))
	}

	token, err := jwt.Parse(req.RefreshToken, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		observability.AuthFailures.WithLabelValues("invalid_refresh").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired refresh token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid token claims"))
	}
	if typ, _ := claims["typ"].(string); typ != refreshTokenType {
		observability.AuthFailures.WithLabelValues("invalid_refresh").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Not a refresh token"))
	}
	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid token issuer"))
	}

	user, err := s.resolveClaims(c, claims)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(err.Error()))
	}

	accessToken, err := s.generateToken(user.ID, user.Username, "", s.accessTokenTTL())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"access_token": accessToken,
	})
}

// generateToken creates a signed JWT for the given user. An empty typ mints
// an access token; refreshTokenType mints a refresh token.
func (s *Server) generateToken(userID uuid.UUID, username, typ string, ttl time.Duration) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID.String(),     // Subject (user ID as string)
		"username": username,            // Username (cached in token)
		"iss":      tokenIssuer,         // Issuer
		"aud":      tokenAudience,       // Audience
		"exp":      now.Add(ttl).Unix(), // Expiration
		"iat":      now.Unix(),          // Issued at
		"nbf":      now.Unix(),          // Not before
		"jti":      s.generateJTI(),     // JWT ID (unique identifier)
	}
	if typ != "" {
		claims["typ"] = typ
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
