package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
)

type fakeUserModRepo struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserModRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserModRepo) SetBanned(_ context.Context, userID uuid.UUID, banned bool) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

func (f *fakeUserModRepo) SetVerified(_ context.Context, userID uuid.UUID, verified bool) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	u.IsVerified = verified
	return nil
}

func (f *fakeUserModRepo) SetSubscriptionTier(_ context.Context, userID uuid.UUID, tier string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	u.SubscriptionTier = tier
	return nil
}

type fakeVouchRepo struct {
	vouches []models.Vouch
}

func (f *fakeVouchRepo) Create(_ context.Context, v *models.Vouch) error {
	v.ID = uuid.New()
	f.vouches = append(f.vouches, *v)
	return nil
}

func (f *fakeVouchRepo) ListForUser(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Vouch, error) {
	var out []models.Vouch
	for _, v := range f.vouches {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeVouchTrades struct {
	completed bool
}

func (f *fakeVouchTrades) ExistsCompletedBetween(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return f.completed, nil
}

type fakeUserAudit struct {
	entries []models.AuditEntry
}

func (f *fakeUserAudit) Create(_ context.Context, e *models.AuditEntry) error {
	e.ID = uuid.New()
	f.entries = append(f.entries, *e)
	return nil
}

func newUserServiceForTest(users *fakeUserModRepo, trades *fakeVouchTrades) (*UserService, *fakeVouchRepo, *fakeUserAudit) {
	vouches := &fakeVouchRepo{}
	audit := &fakeUserAudit{}
	return NewUserService(users, vouches, trades, audit, nil), vouches, audit
}

func TestUserService_Vouch_RequiresCompletedTrade(t *testing.T) {
	target := &models.User{ID: uuid.New(), Role: models.RoleUser}
	users := &fakeUserModRepo{users: map[uuid.UUID]*models.User{target.ID: target}}
	svc, vouchRepo, _ := newUserServiceForTest(users, &fakeVouchTrades{completed: false})

	actor := models.Actor{ID: uuid.New(), Role: models.RoleUser}

	_, err := svc.Vouch(context.Background(), actor, target.ID, nil, nil)
	if !apperror.IsForbidden(err) {
		t.Fatalf("без завершённой сделки ожидали FORBIDDEN, получили %v", err)
	}
	if len(vouchRepo.vouches) != 0 {
		t.Fatalf("поручительство не должно было сохраниться")
	}
}

func TestUserService_Vouch_AfterCompletedTrade(t *testing.T) {
	target := &models.User{ID: uuid.New(), Role: models.RoleUser}
	users := &fakeUserModRepo{users: map[uuid.UUID]*models.User{target.ID: target}}
	svc, vouchRepo, _ := newUserServiceForTest(users, &fakeVouchTrades{completed: true})

	actor := models.Actor{ID: uuid.New(), Role: models.RoleUser}
	comment := "надёжный продавец"

	vouch, err := svc.Vouch(context.Background(), actor, target.ID, nil, &comment)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if vouch.VoucherID != actor.ID || vouch.UserID != target.ID {
		t.Fatalf("поручительство сохранено с неверными сторонами: %+v", vouch)
	}
	if len(vouchRepo.vouches) != 1 {
		t.Fatalf("ожидали одно сохранённое поручительство, получили %d", len(vouchRepo.vouches))
	}
}

func TestUserService_Vouch_SelfRejected(t *testing.T) {
	actor := models.Actor{ID: uuid.New(), Role: models.RoleUser}
	users := &fakeUserModRepo{users: map[uuid.UUID]*models.User{}}
	svc, _, _ := newUserServiceForTest(users, &fakeVouchTrades{completed: true})

	_, err := svc.Vouch(context.Background(), actor, actor.ID, nil, nil)
	if !apperror.Is(err, apperror.ErrCodeValidation) {
		t.Fatalf("за себя поручиться нельзя, получили %v", err)
	}
}

func TestUserService_SetBanned(t *testing.T) {
	target := &models.User{ID: uuid.New(), Role: models.RoleUser}
	users := &fakeUserModRepo{users: map[uuid.UUID]*models.User{target.ID: target}}
	svc, _, audit := newUserServiceForTest(users, &fakeVouchTrades{})

	user := models.Actor{ID: uuid.New(), Role: models.RoleUser}
	moderator := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}

	if err := svc.SetBanned(context.Background(), user, target.ID, true, "спам"); !apperror.IsForbidden(err) {
		t.Fatalf("обычный пользователь не может банить, получили %v", err)
	}

	if err := svc.SetBanned(context.Background(), moderator, moderator.ID, true, "спам"); !apperror.Is(err, apperror.ErrCodeValidation) {
		t.Fatalf("самобан должен отклоняться, получили %v", err)
	}

	if err := svc.SetBanned(context.Background(), moderator, target.ID, true, "спам"); err != nil {
		t.Fatalf("неожиданная ошибка бана: %v", err)
	}
	if !target.IsBanned {
		t.Fatalf("пользователь должен быть забанен")
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != models.AuditActionUserBanned {
		t.Fatalf("ожидали запись аудита user_banned, получили %+v", audit.entries)
	}

	if err := svc.SetBanned(context.Background(), moderator, target.ID, false, "амнистия"); err != nil {
		t.Fatalf("неожиданная ошибка разбана: %v", err)
	}
	if target.IsBanned {
		t.Fatalf("пользователь должен быть разбанен")
	}
	if len(audit.entries) != 2 || audit.entries[1].Action != models.AuditActionUserUnbanned {
		t.Fatalf("ожидали запись аудита user_unbanned, получили %+v", audit.entries)
	}
}

func TestUserService_SetTier(t *testing.T) {
	target := &models.User{ID: uuid.New(), Role: models.RoleUser, SubscriptionTier: models.TierFree}
	users := &fakeUserModRepo{users: map[uuid.UUID]*models.User{target.ID: target}}
	svc, _, _ := newUserServiceForTest(users, &fakeVouchTrades{})

	moderator := models.Actor{ID: uuid.New(), Role: models.RoleAdmin}

	if err := svc.SetTier(context.Background(), moderator, target.ID, "GOLD"); !apperror.Is(err, apperror.ErrCodeValidation) {
		t.Fatalf("неизвестный тариф должен отклоняться, получили %v", err)
	}

	if err := svc.SetTier(context.Background(), moderator, target.ID, models.TierElite); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if target.SubscriptionTier != models.TierElite {
		t.Fatalf("тариф не применился: %s", target.SubscriptionTier)
	}
}
