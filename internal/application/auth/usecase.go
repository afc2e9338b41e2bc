package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/swiftinvoice-api/internal/application/dto"
	"github.com/jhoicas/swiftinvoice-api/internal/domain"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
	"github.com/jhoicas/swiftinvoice-api/pkg/eventbus"
	"github.com/jhoicas/swiftinvoice-api/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro, login y perfil.
// Las cuentas viven como documentos users/{uid}/account/profile; la
// búsqueda por email es la única consulta sin acotar por propietario.
type AuthUseCase struct {
	store  store.DocumentStore
	bus    *eventbus.Bus
	jwtCfg JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(st store.DocumentStore, bus *eventbus.Bus, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{store: st, bus: bus, jwtCfg: jwtCfg}
}

const minPasswordLen = 6

// Register crea una cuenta: hashea el password con bcrypt, persiste el
// perfil y crea la configuración inicial (sin emisores, contador vacío).
// Devuelve ErrEmailAlreadyExists si el email ya está registrado.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidInput
	}
	if len(in.Password) < minPasswordLen {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	name := in.Name
	if name == "" {
		name = email
	}
	user := &entity.User{
		UID:          uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	p := store.NewPath(user.UID, store.ColAccount, store.ProfileDocID)
	if err := uc.store.Set(ctx, p, data, false); err != nil {
		return nil, err
	}

	settings := entity.DefaultSettings()
	settingsData, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	sp := store.NewPath(user.UID, store.ColSettings, store.SettingsDocID)
	if err := uc.store.Set(ctx, sp, settingsData, false); err != nil {
		return nil, err
	}

	uc.bus.Publish(eventbus.TopicAuthRegister, user.UID)
	return toUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token más usuario.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.findByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.UID, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	uc.bus.Publish(eventbus.TopicAuthLogin, user.UID)
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

// Me devuelve el perfil del usuario autenticado.
func (uc *AuthUseCase) Me(ctx context.Context, uid string) (*dto.UserResponse, error) {
	p := store.NewPath(uid, store.ColAccount, store.ProfileDocID)
	doc, err := uc.store.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrUserNotFound
	}
	var user entity.User
	if err := json.Unmarshal(doc.Data, &user); err != nil {
		return nil, fmt.Errorf("decodificar cuenta %s: %w", uid, err)
	}
	return toUserResponse(&user), nil
}

// findByEmail busca una cuenta por email en toda la colección account.
func (uc *AuthUseCase) findByEmail(ctx context.Context, email string) (*entity.User, error) {
	docs, err := uc.store.Query(ctx, store.Query{
		Collection: store.ColAccount,
		Filters:    []store.Filter{{Field: "email", Value: email}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var user entity.User
	if err := json.Unmarshal(docs[0].Data, &user); err != nil {
		return nil, fmt.Errorf("decodificar cuenta: %w", err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		UID:       u.UID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
