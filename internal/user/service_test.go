package user

import (
	"context"
	"encoding/json"
	"testing"

	"eduverse/internal/logger"
	"eduverse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T) (*Service, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	svc := NewService(kv)
	svc.SetLogger(logger.NewLogger(logger.ERROR))
	require.NoError(t, svc.Load(context.Background()))
	return svc, kv
}

func savedUser(t *testing.T, kv storage.KV) (User, bool) {
	t.Helper()
	data, found, err := kv.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	if !found {
		return User{}, false
	}
	var u User
	require.NoError(t, json.Unmarshal(data, &u))
	return u, true
}

func TestLogin_CreatesDefaultProfile(t *testing.T) {
	svc, kv := newTestService(t)

	u := svc.Login("a@x.com")

	assert.Equal(t, User{Name: DefaultName, Email: "a@x.com", Role: RoleStudent}, u)
	assert.False(t, svc.IsPremium())

	saved, found := savedUser(t, kv)
	require.True(t, found, "login should persist the profile")
	assert.Equal(t, u, saved)
}

func TestLogin_SameEmailIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Login("a@x.com")
	require.True(t, svc.UpgradeToPremium())
	role := RoleProfessional
	require.True(t, svc.Update(Patch{Role: &role}))

	u := svc.Login("a@x.com")

	assert.True(t, u.IsPremium, "premium flag must survive re-login")
	assert.Equal(t, RoleProfessional, u.Role)
	assert.True(t, svc.IsPremium())
}

func TestLogin_DifferentEmailReplacesProfile(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Login("a@x.com")
	svc.UpgradeToPremium()

	u := svc.Login("b@x.com")

	assert.Equal(t, "b@x.com", u.Email)
	assert.False(t, u.IsPremium)
}

func TestSignup_AlwaysReplacesSession(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Login("a@x.com")
	svc.UpgradeToPremium()

	u := svc.Signup("Ada", "a@x.com")

	assert.Equal(t, User{Name: "Ada", Email: "a@x.com"}, u)
	assert.False(t, svc.IsPremium())
}

func TestLogout_ClearsAndRemovesRecord(t *testing.T) {
	svc, kv := newTestService(t)
	svc.Login("a@x.com")

	svc.Logout()

	_, ok := svc.Current()
	assert.False(t, ok)
	_, found := savedUser(t, kv)
	assert.False(t, found, "logout should remove the persisted record")
}

func TestUpdate_WithoutSessionIsNoop(t *testing.T) {
	svc, kv := newTestService(t)
	name := "Ghost"

	assert.False(t, svc.Update(Patch{Name: &name}))
	assert.False(t, svc.UpgradeToPremium())

	_, ok := svc.Current()
	assert.False(t, ok)
	_, found := savedUser(t, kv)
	assert.False(t, found)
}

func TestUpdate_ShallowMerge(t *testing.T) {
	svc, kv := newTestService(t)
	svc.Login("a@x.com")
	name := "Ada Lovelace"
	avatar := "https://example.com/ada.png"

	require.True(t, svc.Update(Patch{Name: &name, Avatar: &avatar}))

	u, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, RoleStudent, u.Role)
	assert.Equal(t, avatar, u.Avatar)

	saved, _ := savedUser(t, kv)
	assert.Equal(t, u, saved)
}

func TestLoad_RestoresAndRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`{"name":"Ada","email":"a@x.com","isPremium":true,"role":"College"}`)))

	svc := NewService(kv)
	svc.SetLogger(logger.NewLogger(logger.ERROR))
	require.NoError(t, svc.Load(ctx))
	u, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, User{Name: "Ada", Email: "a@x.com", IsPremium: true, Role: RoleCollege}, u)

	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`{"name": oops`)))
	require.NoError(t, svc.Load(ctx))
	_, ok = svc.Current()
	assert.False(t, ok, "malformed record should load as no session")
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	var events []*User
	unsubscribe := svc.Subscribe(func(u *User) { events = append(events, u) })

	svc.Login("a@x.com")
	svc.Logout()
	unsubscribe()
	svc.Login("b@x.com")

	require.Len(t, events, 2)
	assert.Equal(t, "a@x.com", events[0].Email)
	assert.Nil(t, events[1])
}

func TestViewCurrent(t *testing.T) {
	svc, _ := newTestService(t)

	var got *User
	svc.ViewCurrent(func(u *User) { got = u })
	assert.Nil(t, got)

	svc.Login("a@x.com")
	svc.ViewCurrent(func(u *User) { got = u })
	require.NotNil(t, got)
	assert.Equal(t, "a@x.com", got.Email)

	got.Name = "changed"
	current, _ := svc.Current()
	assert.Equal(t, DefaultName, current.Name)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleCollege.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("Admin").Valid())
}
