package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"passport/config"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

// jwtChallengeService implements ChallengeTokenService with signed HS256 JWTs.
// Challenge tokens are the only JWTs in the system; sessions stay opaque.
type jwtChallengeService struct {
	secret []byte
	ttl    time.Duration
}

// NewChallengeTokenService is the constructor for jwtChallengeService.
func NewChallengeTokenService(cfg *config.Config) (service.ChallengeTokenService, error) {
	if cfg.Session.Secret == "" {
		return nil, errors.New("session secret must be provided")
	}

	return &jwtChallengeService{
		secret: []byte(cfg.Session.Secret),
		ttl:    cfg.Auth.ChallengeTTL,
	}, nil
}

// Issue creates a signed challenge token for the given user.
func (s *jwtChallengeService) Issue(userID uuid.UUID, kind service.ChallengeKind) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"type": string(kind),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign challenge token")
	}

	return signed, nil
}

// Verify validates a challenge token and returns the user it was issued for.
func (s *jwtChallengeService) Verify(tokenString string, kind service.ChallengeKind) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "parse challenge token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.New("invalid challenge token claims")
	}

	if tokenType, _ := claims["type"].(string); tokenType != string(kind) {
		return uuid.Nil, errors.Errorf("unexpected challenge kind: %s", tokenType)
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "read challenge subject")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "parse challenge subject")
	}

	return userID, nil
}
