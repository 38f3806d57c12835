package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"digistore/internal/config"
	"digistore/internal/domain/model"
	"digistore/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// 入力チェック。実装は internal/validator
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error
	ValidateLogout(ctx context.Context) error
	ValidateForceLogout(ctx context.Context, targetUserID int64) error
}

// ログイン時にゲストのカートを引き継ぐ
type CartMerger interface {
	MergeOnLogin(ctx context.Context, guest model.Owner, user model.Owner) error
}

type UserView struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type AccessTokenView struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

// register / login 共通の入力
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterOutput struct {
	User UserView `json:"user"`
}

type LoginOutput struct {
	User  UserView        `json:"user"`
	Token AccessTokenView `json:"token"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

type ForceLogoutOutput struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

// Body は JSON、平文トークンは handler が cookie に入れる
type LoginSession struct {
	Body              LoginOutput
	RefreshTokenPlain string
	CsrfTokenPlain    string
}

type RefreshSession struct {
	Body              AccessTokenView
	RefreshTokenPlain string
	CsrfTokenPlain    string
}

// login と refresh で発行する3点セット
type issuedSession struct {
	token   AccessTokenView
	refresh string
	csrf    string
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	rtRepo    repository.RefreshTokenRepository
	auditRepo repository.AuditLogRepository
	validator AuthValidator
	carts     CartMerger
	log       *zap.Logger
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	auditRepo repository.AuditLogRepository,
	validator AuthValidator,
	carts CartMerger,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		rtRepo:    rtRepo,
		auditRepo: auditRepo,
		validator: validator,
		carts:     carts,
		log:       log,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req Credentials) (*RegisterOutput, error) {
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal
	}

	user := &model.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(pwHash),
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
	}

	//validator をすり抜けた同時登録は unique 違反になる
	if err := u.users.Create(ctx, user); err != nil {
		return nil, ErrConflict
	}

	u.log.Info("user registered", zap.Int64("user_id", user.ID))
	return &RegisterOutput{User: toUserView(user)}, nil
}

// guestToken があればゲストカートをユーザーのカートへ合流させる
func (u *AuthUsecase) Login(ctx context.Context, req Credentials, userAgent string, guestToken string) (*LoginSession, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	//停止ユーザーはパスワードが合っていても拒否
	if !user.IsActive {
		return nil, ErrForbidden
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrUnauthorized
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.Warn("last login update failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	sess, err := u.issueSession(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}

	//合流に失敗してもログインは通す。ゲスト行はそのまま残る
	if strings.TrimSpace(guestToken) != "" {
		if err := u.carts.MergeOnLogin(ctx, model.GuestOwner(guestToken), model.UserOwner(user.ID)); err != nil {
			u.log.Error("guest cart merge failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	return &LoginSession{
		Body:              LoginOutput{User: toUserView(user), Token: sess.token},
		RefreshTokenPlain: sess.refresh,
		CsrfTokenPlain:    sess.csrf,
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserView, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}

	v := toUserView(user)
	return &v, nil
}

// ローテーション。使用済みトークンが来たら盗用とみなして全セッションを消す
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string, userAgent string) (*RefreshSession, error) {
	if err := u.validator.ValidateRefresh(ctx, refreshTokenPlain, userAgent); err != nil {
		return nil, err
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if err != nil || rt == nil {
		return nil, ErrUnauthorized
	}

	switch {
	case !rt.ExpiresAt.After(time.Now()):
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return nil, ErrUnauthorized
	case rt.RevokedAt != nil:
		return nil, ErrUnauthorized
	case rt.UsedAt != nil:
		return nil, u.revokeAll(ctx, rt.UserID, "refresh token replay")
	case userAgent != "" && rt.UserAgent != "" && userAgent != rt.UserAgent:
		return nil, u.revokeAll(ctx, rt.UserID, "refresh token user agent mismatch")
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}

	//先に使用済みにする。失敗したら同時リクエストに負けたとみなす
	if err := u.rtRepo.MarkUsed(ctx, rt.ID); err != nil {
		return nil, u.revokeAll(ctx, rt.UserID, "refresh token mark used failed")
	}

	sess, err := u.issueSession(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}
	return &RefreshSession{
		Body:              sess.token,
		RefreshTokenPlain: sess.refresh,
		CsrfTokenPlain:    sess.csrf,
	}, nil
}

func (u *AuthUsecase) revokeAll(ctx context.Context, userID int64, reason string) error {
	if err := u.rtRepo.DeleteAllByUserID(ctx, userID); err != nil {
		u.log.Error("refresh token revoke failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	u.log.Warn(reason, zap.Int64("user_id", userID))
	return ErrSecurityIncident
}

func (u *AuthUsecase) Logout(ctx context.Context, refreshTokenPlain string) (*MessageOutput, error) {
	if err := u.validator.ValidateLogout(ctx); err != nil {
		return nil, err
	}
	if refreshTokenPlain == "" {
		return nil, ErrUnauthorized
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if err != nil || rt == nil {
		return nil, ErrUnauthorized
	}

	if err := u.rtRepo.DeleteByID(ctx, rt.ID); err != nil {
		return nil, ErrInternal
	}

	return &MessageOutput{Message: "logout success"}, nil
}

// 管理者による強制ログアウト（token_version を上げて refresh を全削除）
func (u *AuthUsecase) ForceLogout(ctx context.Context, actorAdminUserID int64, targetUserID int64) (*ForceLogoutOutput, error) {
	if err := u.validator.ValidateForceLogout(ctx, targetUserID); err != nil {
		return nil, err
	}

	before, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, ErrInternal
	}
	if before == nil {
		return nil, ErrNotFound
	}

	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return nil, ErrInternal
	}
	if err := u.rtRepo.DeleteAllByUserID(ctx, targetUserID); err != nil {
		return nil, ErrInternal
	}

	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil || user == nil {
		return nil, ErrInternal
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   fmt.Sprintf(`{"token_version":%d}`, before.TokenVersion),
		AfterJSON:    fmt.Sprintf(`{"token_version":%d}`, user.TokenVersion),
		CreatedAt:    time.Now(),
	}); err != nil {
		u.log.Error("audit log failed", zap.String("action", string(model.AuditActionForceLogout)), zap.Error(err))
	}

	u.log.Info("user force logged out", zap.Int64("user_id", user.ID), zap.Int64("actor", actorAdminUserID))
	return &ForceLogoutOutput{UserID: user.ID, NewTokenVersion: user.TokenVersion}, nil
}

func (u *AuthUsecase) issueSession(ctx context.Context, user *model.User, userAgent string) (issuedSession, error) {
	access, err := u.signAccessToken(user, time.Now())
	if err != nil {
		return issuedSession{}, ErrInternal
	}

	refreshPlain, err := newOpaqueToken()
	if err != nil {
		return issuedSession{}, ErrInternal
	}
	csrfPlain, err := newOpaqueToken()
	if err != nil {
		return issuedSession{}, ErrInternal
	}

	//DBにはhashだけ
	row := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshPlain),
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
	}
	if err := u.rtRepo.Create(ctx, row); err != nil {
		return issuedSession{}, ErrInternal
	}

	return issuedSession{
		token: AccessTokenView{
			AccessToken:  access,
			ExpiresIn:    int(accessTokenTTL.Seconds()),
			TokenVersion: user.TokenVersion,
		},
		refresh: refreshPlain,
		csrf:    csrfPlain,
	}, nil
}

// sub=ユーザーID, tv=token_version
func (u *AuthUsecase) signAccessToken(user *model.User, now time.Time) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}).SignedString([]byte(u.cfg.JWTSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserView(u *model.User) UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}
