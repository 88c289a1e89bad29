package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/internal/repository"
	"github.com/minhngodev/campus-api/pkg/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ========== fakes ==========

type fakeUserRepo struct {
	users []model.User
}

func (r *fakeUserRepo) Create(user *model.User) error {
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) FindByID(id uuid.UUID) (*model.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	for i := range r.users {
		if r.users[i].Email == email {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByIDs(ids []uuid.UUID) ([]model.User, error) {
	var out []model.User
	for _, id := range ids {
		for i := range r.users {
			if r.users[i].ID == id {
				out = append(out, r.users[i])
			}
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByRole(role model.Role) ([]model.User, error) {
	var out []model.User
	for i := range r.users {
		if r.users[i].Role == role {
			out = append(out, r.users[i])
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindIDsByRole(role model.Role) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for i := range r.users {
		if r.users[i].Role == role {
			out = append(out, r.users[i].ID)
		}
	}
	return out, nil
}

type fakeDeviceRepo struct {
	devices []model.DeviceToken
	deleted []string // tokens passed to DeleteByTokens
}

func (r *fakeDeviceRepo) FindByUserAndDevice(userID uuid.UUID, deviceID string) (*model.DeviceToken, error) {
	for i := range r.devices {
		if r.devices[i].UserID == userID && r.devices[i].DeviceID == deviceID {
			return &r.devices[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDeviceRepo) FindByUserAndToken(userID uuid.UUID, token string) (*model.DeviceToken, error) {
	for i := range r.devices {
		if r.devices[i].UserID == userID && r.devices[i].Token == token {
			return &r.devices[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDeviceRepo) Create(device *model.DeviceToken) error {
	r.devices = append(r.devices, *device)
	return nil
}

func (r *fakeDeviceRepo) Save(device *model.DeviceToken) error {
	for i := range r.devices {
		if r.devices[i].ID == device.ID {
			r.devices[i] = *device
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeDeviceRepo) FindByUserIDs(userIDs []uuid.UUID) ([]model.DeviceToken, error) {
	want := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []model.DeviceToken
	for _, d := range r.devices {
		if want[d.UserID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) DeleteByTokens(tokens []string) error {
	r.deleted = append(r.deleted, tokens...)
	gone := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		gone[t] = true
	}
	kept := r.devices[:0]
	for _, d := range r.devices {
		if !gone[d.Token] {
			kept = append(kept, d)
		}
	}
	r.devices = kept
	return nil
}

func (r *fakeDeviceRepo) DeleteByUserAndToken(userID uuid.UUID, token string) error {
	kept := r.devices[:0]
	for _, d := range r.devices {
		if !(d.UserID == userID && d.Token == token) {
			kept = append(kept, d)
		}
	}
	r.devices = kept
	return nil
}

func (r *fakeDeviceRepo) DeleteByUser(userID uuid.UUID) error {
	kept := r.devices[:0]
	for _, d := range r.devices {
		if d.UserID != userID {
			kept = append(kept, d)
		}
	}
	r.devices = kept
	return nil
}

type fakeNotifRepo struct {
	records    map[uuid.UUID]*model.Notification
	deliveries map[uuid.UUID][]model.DeliveryStatus

	createRowsErr error
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{
		records:    make(map[uuid.UUID]*model.Notification),
		deliveries: make(map[uuid.UUID][]model.DeliveryStatus),
	}
}

func (r *fakeNotifRepo) Create(n *model.Notification) error {
	cp := *n
	r.records[n.ID] = &cp
	return nil
}

func (r *fakeNotifRepo) FindByID(id uuid.UUID) (*model.Notification, error) {
	n, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	cp.Deliveries = r.deliveries[id]
	return &cp, nil
}

func (r *fakeNotifRepo) Finalize(id uuid.UUID, status model.NotificationStatus, successCount, failureCount int, sentAt time.Time) error {
	n, ok := r.records[id]
	if !ok || n.Status != model.StatusPending {
		return nil
	}
	n.Status = status
	n.SuccessCount = successCount
	n.FailureCount = failureCount
	n.SentAt = &sentAt
	return nil
}

func (r *fakeNotifRepo) CreateDeliveryStatuses(rows []model.DeliveryStatus) error {
	if r.createRowsErr != nil {
		return r.createRowsErr
	}
	for _, row := range rows {
		r.deliveries[row.NotificationID] = append(r.deliveries[row.NotificationID], row)
	}
	return nil
}

func (r *fakeNotifRepo) CloseDeliveries(notificationID uuid.UUID, updates []repository.DeliveryUpdate) error {
	rows := r.deliveries[notificationID]
	now := time.Now()
	for _, u := range updates {
		for i := range rows {
			if rows[i].TokenID == u.TokenID {
				rows[i].Status = u.Status
				rows[i].ErrorCode = u.ErrorCode
				rows[i].ErrorMessage = u.ErrorMessage
				rows[i].ProcessedAt = &now
			}
		}
	}
	return nil
}

func (r *fakeNotifRepo) CountDeliveries(notificationID uuid.UUID) (int64, error) {
	return int64(len(r.deliveries[notificationID])), nil
}

func (r *fakeNotifRepo) ListHistory(filter model.HistoryFilter, page, limit int) ([]model.Notification, int64, error) {
	var out []model.Notification
	for _, n := range r.records {
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotifRepo) CountSince(since time.Time) (int64, error) {
	return int64(len(r.records)), nil
}

func (r *fakeNotifRepo) CountByStatusSince(since time.Time) ([]model.StatusCount, error) {
	counts := make(map[model.NotificationStatus]int64)
	for _, n := range r.records {
		counts[n.Status]++
	}
	var out []model.StatusCount
	for status, count := range counts {
		out = append(out, model.StatusCount{Status: status, Count: count})
	}
	return out, nil
}

func (r *fakeNotifRepo) CountByTargetTypeSince(since time.Time) ([]model.TargetTypeCount, error) {
	counts := make(map[model.TargetType]int64)
	for _, n := range r.records {
		counts[n.TargetType]++
	}
	var out []model.TargetTypeCount
	for tt, count := range counts {
		out = append(out, model.TargetTypeCount{TargetType: tt, Count: count})
	}
	return out, nil
}

// scriptedGateway answers each token from the outcomes map; tokens not in
// the map succeed
type scriptedGateway struct {
	outcomes map[string]push.TokenOutcome
	calls    int
	err      error
}

func (g *scriptedGateway) SendBatch(ctx context.Context, tokens []string, msg *push.Message) ([]push.TokenOutcome, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	outs := make([]push.TokenOutcome, len(tokens))
	for i, token := range tokens {
		if o, ok := g.outcomes[token]; ok {
			o.Token = token
			outs[i] = o
			continue
		}
		outs[i] = push.TokenOutcome{Token: token, Success: true}
	}
	return outs, nil
}

type capturedEvents struct {
	events []DispatchEvent
}

func (c *capturedEvents) PublishDispatch(event DispatchEvent) {
	c.events = append(c.events, event)
}

// ========== fixture ==========

type fixture struct {
	users   *fakeUserRepo
	devices *fakeDeviceRepo
	notifs  *fakeNotifRepo
	gateway *scriptedGateway
	events  *capturedEvents
	svc     *NotificationService
}

func newFixture() *fixture {
	f := &fixture{
		users:   &fakeUserRepo{},
		devices: &fakeDeviceRepo{},
		notifs:  newFakeNotifRepo(),
		gateway: &scriptedGateway{outcomes: map[string]push.TokenOutcome{}},
		events:  &capturedEvents{},
	}
	dispatcher := push.NewDispatcher(f.gateway, push.Config{ChunkSize: 500, Workers: 1})
	f.svc = NewNotificationService(f.users, f.devices, f.notifs, dispatcher, f.events)
	return f
}

func (f *fixture) addUser(role model.Role) model.User {
	u := model.User{
		ID:    uuid.New(),
		Name:  "User " + uuid.NewString()[:8],
		Email: uuid.NewString()[:8] + "@campus.local",
		Role:  role,
	}
	f.users.users = append(f.users.users, u)
	return u
}

func (f *fixture) addDevice(userID uuid.UUID, token string) model.DeviceToken {
	d := model.DeviceToken{
		ID:         uuid.New(),
		UserID:     userID,
		DeviceID:   "device-" + token,
		DeviceType: model.DeviceTypeAndroid,
		Token:      token,
	}
	f.devices.devices = append(f.devices.devices, d)
	return d
}

// ========== device registration ==========

func TestRegisterDeviceInsertsNew(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	device, err := f.svc.RegisterDevice(userID, "tok-1", "pixel-8", model.DeviceTypeAndroid)

	require.NoError(t, err)
	assert.Equal(t, userID, device.UserID)
	assert.Equal(t, "tok-1", device.Token)
	assert.Len(t, f.devices.devices, 1)
}

func TestRegisterDeviceRefreshesSameDevice(t *testing.T) {
	// Same (user, device) with a rotated token must update in place
	f := newFixture()
	userID := uuid.New()

	first, err := f.svc.RegisterDevice(userID, "tok-old", "pixel-8", model.DeviceTypeAndroid)
	require.NoError(t, err)

	second, err := f.svc.RegisterDevice(userID, "tok-new", "pixel-8", model.DeviceTypeAndroid)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "row identity must survive a token refresh")
	assert.Equal(t, "tok-new", second.Token)
	assert.Len(t, f.devices.devices, 1)
}

func TestRegisterDeviceIsIdempotent(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := f.svc.RegisterDevice(userID, "tok-1", "pixel-8", model.DeviceTypeAndroid)
		require.NoError(t, err)
	}

	assert.Len(t, f.devices.devices, 1)
}

func TestRegisterDeviceRepointsTokenAcrossDeviceIDs(t *testing.T) {
	// A reinstall can report the same token under a fresh device id; the
	// existing row moves instead of violating the (user, token) invariant.
	f := newFixture()
	userID := uuid.New()

	first, err := f.svc.RegisterDevice(userID, "tok-1", "install-a", model.DeviceTypeAndroid)
	require.NoError(t, err)

	second, err := f.svc.RegisterDevice(userID, "tok-1", "install-b", model.DeviceTypeAndroid)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "install-b", second.DeviceID)
	assert.Len(t, f.devices.devices, 1)
}

func TestRegisterDeviceRejectsBadType(t *testing.T) {
	f := newFixture()

	_, err := f.svc.RegisterDevice(uuid.New(), "tok-1", "pixel-8", model.DeviceType("TOASTER"))

	assert.ErrorIs(t, err, ErrInvalidDeviceType)
	assert.Empty(t, f.devices.devices)
}

func TestUnregisterDevice(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	f.addDevice(userID, "tok-1")
	f.addDevice(userID, "tok-2")

	require.NoError(t, f.svc.UnregisterDevice(userID, "tok-1"))

	require.Len(t, f.devices.devices, 1)
	assert.Equal(t, "tok-2", f.devices.devices[0].Token)
}

// ========== target parsing ==========

func TestParseTargetSpec(t *testing.T) {
	id1 := uuid.NewString()
	id2 := uuid.NewString()

	tests := []struct {
		name       string
		targetType model.TargetType
		targetIDs  []string
		wantErr    bool
	}{
		{"single user", model.TargetUser, []string{id1}, false},
		{"user with two ids", model.TargetUser, []string{id1, id2}, true},
		{"user with bad uuid", model.TargetUser, []string{"not-a-uuid"}, true},
		{"multiple users", model.TargetMultipleUsers, []string{id1, id2}, false},
		{"multiple with one bad uuid", model.TargetMultipleUsers, []string{id1, "bad"}, true},
		{"role student", model.TargetRole, []string{"STUDENT"}, false},
		{"role unknown", model.TargetRole, []string{"WIZARD"}, true},
		{"role with two values", model.TargetRole, []string{"STUDENT", "STAFF"}, true},
		{"empty target ids", model.TargetUser, nil, true},
		{"unknown target type", model.TargetType("EVERYONE"), []string{id1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTargetSpec(tt.targetType, tt.targetIDs)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTarget)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ========== dispatch pipeline ==========

func TestDispatchSingleUserSuccess(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	device := f.addDevice(user.ID, "tok-1")

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "Library closing early",
		Body:       "Closes at 5pm today",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, n.Status)
	assert.Equal(t, 1, n.SuccessCount)
	assert.Equal(t, 0, n.FailureCount)
	require.NotNil(t, n.SentAt)

	rows := f.notifs.deliveries[n.ID]
	require.Len(t, rows, 1)
	assert.Equal(t, model.DeliverySent, rows[0].Status)
	assert.Equal(t, device.ID, rows[0].TokenID)
	assert.Equal(t, user.ID, rows[0].UserID)
	assert.NotNil(t, rows[0].ProcessedAt)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, n.ID, f.events.events[0].NotificationID)
	assert.Equal(t, model.StatusSent, f.events.events[0].Status)
}

func TestDispatchInvalidTargetCreatesNothing(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{"not-a-uuid"},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Empty(t, f.notifs.records, "validation must run before any write")
	assert.Equal(t, 0, f.gateway.calls)
}

func TestDispatchNoDevicesIsTerminalFailure(t *testing.T) {
	// Targeted user exists but has no registered devices: the record closes
	// FAILED with zero counts, zero delivery rows, and no gateway call.
	f := newFixture()
	user := f.addUser(model.RoleStudent)

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, n.Status)
	assert.Equal(t, 0, n.SuccessCount)
	assert.Equal(t, 0, n.FailureCount)
	assert.Empty(t, f.notifs.deliveries[n.ID])
	assert.Equal(t, 0, f.gateway.calls)

	// terminal state still broadcasts
	require.Len(t, f.events.events, 1)
	assert.Equal(t, model.StatusFailed, f.events.events[0].Status)
}

func TestDispatchTerminalFailureRetiresToken(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-dead")
	f.addDevice(user.ID, "tok-live")

	f.gateway.outcomes["tok-dead"] = push.TokenOutcome{
		Success:      false,
		ErrorCode:    "registration-token-not-registered",
		ErrorMessage: "Requested entity was not found.",
		Class:        push.ClassTerminal,
	}

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, n.Status, "one success is enough for SENT")
	assert.Equal(t, 1, n.SuccessCount)
	assert.Equal(t, 1, n.FailureCount)

	// dead token retired, live token kept
	assert.Equal(t, []string{"tok-dead"}, f.devices.deleted)
	require.Len(t, f.devices.devices, 1)
	assert.Equal(t, "tok-live", f.devices.devices[0].Token)

	// audit rows survive the retirement, error detail intact
	rows := f.notifs.deliveries[n.ID]
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.Token == "tok-dead" {
			assert.Equal(t, model.DeliveryFailed, row.Status)
			assert.Equal(t, "registration-token-not-registered", row.ErrorCode)
		} else {
			assert.Equal(t, model.DeliverySent, row.Status)
			assert.Empty(t, row.ErrorCode)
		}
	}
}

func TestDispatchTransientFailureKeepsToken(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")

	f.gateway.outcomes["tok-1"] = push.TokenOutcome{
		Success:      false,
		ErrorCode:    "unavailable",
		ErrorMessage: "backend unavailable",
		Class:        push.ClassTransient,
	}

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, n.Status)
	assert.Equal(t, 0, n.SuccessCount)
	assert.Equal(t, 1, n.FailureCount)

	assert.Empty(t, f.devices.deleted, "transient failures must not retire tokens")
	assert.Len(t, f.devices.devices, 1)
}

func TestDispatchGatewayOutageIsAbsorbed(t *testing.T) {
	// A transport-level gateway failure closes every row FAILED but is not
	// surfaced as a Dispatch error; the audit record carries the outcome.
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")
	f.gateway.err = errors.New("fcm unreachable")

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, n.Status)
	assert.Equal(t, 1, n.FailureCount)
	assert.Empty(t, f.devices.deleted, "transport failures are transient")

	rows := f.notifs.deliveries[n.ID]
	require.Len(t, rows, 1)
	assert.Equal(t, model.DeliveryFailed, rows[0].Status)
	assert.Equal(t, "transport-error", rows[0].ErrorCode)
}

func TestDispatchRoleFanOut(t *testing.T) {
	// Role targets resolve to current members; users without devices simply
	// contribute no delivery rows.
	f := newFixture()
	s1 := f.addUser(model.RoleStudent)
	s2 := f.addUser(model.RoleStudent)
	f.addUser(model.RoleStudent) // no device
	staff := f.addUser(model.RoleStaff)
	f.addDevice(s1.ID, "tok-s1")
	f.addDevice(s2.ID, "tok-s2a")
	f.addDevice(s2.ID, "tok-s2b")
	f.addDevice(staff.ID, "tok-staff")

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetRole,
		TargetIDs:  []string{"STUDENT"},
		Title:      "Semester results published",
		Body:       "Check the portal",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, n.Status)
	assert.Equal(t, 3, n.SuccessCount, "every student device, none of staff's")
	assert.Len(t, f.notifs.deliveries[n.ID], 3)
}

func TestDispatchMultipleUsersDeduplicates(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetMultipleUsers,
		TargetIDs:  []string{user.ID.String(), user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n.SuccessCount, "duplicate target ids must not double-send")
	assert.Len(t, f.notifs.deliveries[n.ID], 1)
}

func TestDispatchRowCreationFailureSkipsGateway(t *testing.T) {
	// If the PENDING rows cannot be persisted the gateway is never called:
	// no delivery may happen that the audit trail cannot account for.
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")
	f.notifs.createRowsErr = errors.New("disk full")

	_, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 0, f.gateway.calls)

	// the record itself is closed FAILED so it cannot dangle PENDING
	for _, n := range f.notifs.records {
		assert.Equal(t, model.StatusFailed, n.Status)
	}
}

func TestDispatchRecordsSender(t *testing.T) {
	f := newFixture()
	sender := f.addUser(model.RoleAdmin)
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, &sender.ID)

	require.NoError(t, err)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, sender.ID, *n.SenderID)
}

// ========== history and detail ==========

func TestListHistoryAddsDeliveryCounts(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")
	f.addDevice(user.ID, "tok-2")

	_, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetUser,
		TargetIDs:  []string{user.ID.String()},
		Title:      "hi",
		Body:       "hi",
	}, nil)
	require.NoError(t, err)

	resp, err := f.svc.ListHistory(model.HistoryFilter{}, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Page, "page defaults to 1")
	assert.Equal(t, 20, resp.Limit, "limit defaults to 20")
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2), resp.Items[0].DeliveryCount)
}

func TestGetDetailResolvesRoleTargets(t *testing.T) {
	f := newFixture()
	s1 := f.addUser(model.RoleStudent)
	f.addDevice(s1.ID, "tok-1")

	n, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
		TargetType: model.TargetRole,
		TargetIDs:  []string{"STUDENT"},
		Title:      "hi",
		Body:       "hi",
	}, nil)
	require.NoError(t, err)

	// a student enrolled after the dispatch shows up in the resolved list
	f.addUser(model.RoleStudent)

	detail, err := f.svc.GetDetail(n.ID)
	require.NoError(t, err)

	assert.Len(t, detail.Targets, 2, "targets resolve at read time")
	assert.Len(t, detail.Deliveries, 1)
}

func TestGetDetailNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetDetail(uuid.New())

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetStats(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleStudent)
	f.addDevice(user.ID, "tok-1")

	for i := 0; i < 2; i++ {
		_, err := f.svc.Dispatch(context.Background(), model.DispatchRequest{
			TargetType: model.TargetUser,
			TargetIDs:  []string{user.ID.String()},
			Title:      fmt.Sprintf("notice %d", i),
			Body:       "hi",
		}, nil)
		require.NoError(t, err)
	}

	stats, err := f.svc.GetStats(0)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Total)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), stats.Since, time.Minute, "window defaults to 7 days")
	require.Len(t, stats.ByStatus, 1)
	assert.Equal(t, model.StatusSent, stats.ByStatus[0].Status)
	assert.Equal(t, int64(2), stats.ByStatus[0].Count)
}
