package orders

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/models"
)

const minPasswordLen = 6

// SignUpInput registers a new account. Super admins are never created here.
type SignUpInput struct {
	FullName string
	Email    string
	Password string
	Mobile   string
	Role     models.Role
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (u *models.User, err error) {
	ctx, span := startSpan(ctx, "SignUp")
	defer func() { endSpan(span, err) }()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	switch {
	case in.FullName == "":
		return nil, newError(KindValidation, "full name is required")
	case !validEmail(in.Email):
		return nil, newError(KindValidation, "email is invalid")
	case len(in.Password) < minPasswordLen:
		return nil, newError(KindValidation, "password must be at least %d characters", minPasswordLen)
	case !in.Role.Valid() || in.Role == models.RoleSuperAdmin:
		return nil, newError(KindValidation, "role must be user, owner or deliveryBoy")
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindConflict, "an account with this email already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err = s.users.Create(ctx, &models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Mobile:       strings.TrimSpace(in.Mobile),
		Role:         in.Role,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", u.ID).WithField("role", u.Role).Info("user signed up")
	return u, nil
}

// SignIn checks credentials. Unknown email and wrong password fail the same way.
func (s *Service) SignIn(ctx context.Context, email, password string) (u *models.User, err error) {
	ctx, span := startSpan(ctx, "SignIn")
	defer func() { endSpan(span, err) }()

	u, err = s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, newError(KindUnauthenticated, "invalid email or password")
	}
	return u, nil
}

func (s *Service) CurrentUser(ctx context.Context, actor *auth.Principal) (*models.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, newError(KindNotFound, "user not found")
	}
	return u, nil
}

// UpdateLocation stores the actor's last known position, used for agent matching.
func (s *Service) UpdateLocation(ctx context.Context, actor *auth.Principal, lat, lng float64) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !geo.ValidCoordinates(lat, lng) {
		return newError(KindValidation, "coordinates are out of range")
	}
	return notFoundAs(s.users.UpdateLocation(ctx, actor.UserID, lat, lng), "user not found")
}

// SetAvailability lets a delivery agent go on or off duty.
func (s *Service) SetAvailability(ctx context.Context, actor *auth.Principal, available bool) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != models.RoleDeliveryBoy {
		return newError(KindForbidden, "only delivery agents have availability")
	}
	return notFoundAs(s.users.SetAvailability(ctx, actor.UserID, available), "user not found")
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// notFoundAs maps the stores' missing-row errors to NotFound.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments) {
		return newError(KindNotFound, "%s", msg)
	}
	return err
}
