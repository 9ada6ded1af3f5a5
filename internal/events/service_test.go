package events_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-events/internal/events"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

// MockEventDBLayer is a mock implementation of the DBLayer interface
type MockEventDBLayer struct {
	mock.Mock
}

func (m *MockEventDBLayer) ListEvents(ctx context.Context, page pagination.Params, include string) ([]models.Event, int, relations.Set, error) {
	args := m.Called(page, include)
	var list []models.Event
	if args.Get(0) != nil {
		list = args.Get(0).([]models.Event)
	}
	var set relations.Set
	if args.Get(2) != nil {
		set = args.Get(2).(relations.Set)
	}
	return list, args.Int(1), set, args.Error(3)
}

func (m *MockEventDBLayer) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so callers cannot mutate the fixture.
	e := *args.Get(0).(*models.Event)
	return &e, args.Error(1)
}

func (m *MockEventDBLayer) LoadRelations(ctx context.Context, event *models.Event, include string, always ...relations.Relation) (relations.Set, error) {
	args := m.Called(event, include, always)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(relations.Set), args.Error(1)
}

func (m *MockEventDBLayer) CreateEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockEventDBLayer) UpdateEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockEventDBLayer) DeleteEvent(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, activity models.Activity) error {
	args := m.Called(activity)
	return args.Error(0)
}

var fixedNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newService(db *MockEventDBLayer, pub *MockPublisher) *events.EventService {
	svc := events.NewEventService(db, pub, validation.New(), logger.NewWithWriter(io.Discard))
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func storedEvent() *models.Event {
	return &models.Event{
		ID: 4, Name: "Meetup", OwnerID: 1,
		StartTime: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

var (
	owner    = &models.User{ID: 1, Email: "a@x.com"}
	stranger = &models.User{ID: 2, Email: "b@x.com"}
)

func TestCreate_Success(t *testing.T) {
	db, pub := new(MockEventDBLayer), new(MockPublisher)
	svc := newService(db, pub)

	db.On("CreateEvent", mock.MatchedBy(func(e *models.Event) bool {
		return e.OwnerID == 1 && e.Name == "Meetup" && e.EndTime.Sub(e.StartTime) == 2*time.Hour && e.CreatedAt.Equal(fixedNow)
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Event).ID = 10
	}).Return(nil)
	db.On("LoadRelations", mock.Anything, "user", []relations.Relation(nil)).Return(relations.Set{relations.RelUser}, nil)
	pub.On("Publish", mock.MatchedBy(func(a models.Activity) bool {
		return a.Type == models.ActivityEventCreated && a.EntityID == 10 && a.ActorID == 1
	})).Return(nil)

	event, set, err := svc.Create(context.Background(), owner, models.CreateEventRequest{
		Name: "Meetup", StartTime: "2025-06-01T10:00:00Z", EndTime: "2025-06-01T12:00:00Z",
	}, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(10), event.ID)
	assert.Equal(t, int64(1), event.OwnerID)
	assert.Equal(t, relations.Set{relations.RelUser}, set)
	db.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreate_EndMustFollowStart(t *testing.T) {
	for _, end := range []string{"2025-06-01T10:00:00Z", "2025-06-01T09:00:00Z"} {
		db := new(MockEventDBLayer)
		svc := newService(db, new(MockPublisher))

		_, _, err := svc.Create(context.Background(), owner, models.CreateEventRequest{
			Name: "Meetup", StartTime: "2025-06-01T10:00:00Z", EndTime: end,
		}, "")

		var verr *utils.ValidationError
		require.True(t, errors.As(err, &verr), end)
		assert.Equal(t, []string{"The end time field must be a date after start time."}, verr.Fields["end_time"])
		db.AssertNotCalled(t, "CreateEvent", mock.Anything)
	}
}

func TestCreate_FieldValidation(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, new(MockPublisher))

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err := svc.Create(context.Background(), owner, models.CreateEventRequest{
		Name: string(long), StartTime: "not a date",
	}, "")

	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "start_time")
	assert.Contains(t, verr.Fields, "end_time")
	assert.Len(t, verr.Fields["end_time"], 1, "no ordering error when a date is missing")
}

func TestCreate_TrimsInput(t *testing.T) {
	db, pub := new(MockEventDBLayer), new(MockPublisher)
	svc := newService(db, pub)

	db.On("CreateEvent", mock.MatchedBy(func(e *models.Event) bool {
		return e.Name == "Meetup" && e.Description == nil
	})).Return(nil)
	db.On("LoadRelations", mock.Anything, "", []relations.Relation(nil)).Return(relations.Set(nil), nil)
	pub.On("Publish", mock.Anything).Return(nil)

	blank := "   "
	_, _, err := svc.Create(context.Background(), owner, models.CreateEventRequest{
		Name: "  Meetup ", Description: &blank, StartTime: " 2025-06-01T10:00:00Z", EndTime: "2025-06-01T12:00:00Z ",
	}, "")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestCreate_BlankNameRejected(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, new(MockPublisher))

	_, _, err := svc.Create(context.Background(), owner, models.CreateEventRequest{
		Name: "   ", StartTime: "2025-06-01T10:00:00Z", EndTime: "2025-06-01T12:00:00Z",
	}, "")
	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"The name field is required."}, verr.Fields["name"])
	db.AssertNotCalled(t, "CreateEvent", mock.Anything)
}

func TestCreate_RequiresActor(t *testing.T) {
	svc := newService(new(MockEventDBLayer), new(MockPublisher))
	_, _, err := svc.Create(context.Background(), nil, models.CreateEventRequest{}, "")
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)
}

func TestCreate_PublishFailureIsIgnored(t *testing.T) {
	db, pub := new(MockEventDBLayer), new(MockPublisher)
	svc := newService(db, pub)

	db.On("CreateEvent", mock.Anything).Return(nil)
	db.On("LoadRelations", mock.Anything, "", []relations.Relation(nil)).Return(nil, nil)
	pub.On("Publish", mock.Anything).Return(errors.New("broker down"))

	_, _, err := svc.Create(context.Background(), owner, models.CreateEventRequest{
		Name: "Meetup", StartTime: "2025-06-01 10:00", EndTime: "2025-06-01 11:00",
	}, "")
	assert.NoError(t, err)
}

func TestGet_AlwaysLoadsUserAndAttendees(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, nil)

	db.On("GetEvent", int64(4)).Return(storedEvent(), nil)
	db.On("LoadRelations", mock.Anything, "attendees.user", []relations.Relation{relations.RelUser, relations.RelAttendees}).
		Return(relations.Set{relations.RelUser, relations.RelAttendees, relations.RelAttendeesUser}, nil)

	_, set, err := svc.Get(context.Background(), 4, "attendees.user")
	require.NoError(t, err)
	assert.Len(t, set, 3)

	db.On("GetEvent", int64(5)).Return(nil, utils.NotFound("event", 5))
	_, _, err = svc.Get(context.Background(), 5, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestUpdate_OrderOfChecks(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, new(MockPublisher))
	ctx := context.Background()
	bad := "not a date"

	_, _, err := svc.Update(ctx, nil, 4, models.UpdateEventRequest{}, "")
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)

	db.On("GetEvent", int64(99)).Return(nil, utils.NotFound("event", 99))
	_, _, err = svc.Update(ctx, owner, 99, models.UpdateEventRequest{StartTime: &bad}, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	db.On("GetEvent", int64(4)).Return(storedEvent(), nil)
	_, _, err = svc.Update(ctx, stranger, 4, models.UpdateEventRequest{StartTime: &bad}, "")
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, _, err = svc.Update(ctx, owner, 4, models.UpdateEventRequest{StartTime: &bad}, "")
	assert.Equal(t, 422, utils.StatusFor(err))
	db.AssertNotCalled(t, "UpdateEvent", mock.Anything)
}

func TestUpdate_ChecksMergedTimes(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, new(MockPublisher))
	db.On("GetEvent", int64(4)).Return(storedEvent(), nil)

	// Stored end is 12:00, so moving the start past it must fail.
	late := "2025-06-01T13:00:00Z"
	_, _, err := svc.Update(context.Background(), owner, 4, models.UpdateEventRequest{StartTime: &late}, "")
	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "end_time")
}

func TestUpdate_PartialFields(t *testing.T) {
	db, pub := new(MockEventDBLayer), new(MockPublisher)
	svc := newService(db, pub)

	stored := storedEvent()
	desc := "old"
	stored.Description = &desc
	db.On("GetEvent", int64(4)).Return(stored, nil)
	db.On("UpdateEvent", mock.MatchedBy(func(e *models.Event) bool {
		return e.Name == "Renamed" && e.Description == nil && e.StartTime.Equal(stored.StartTime) && e.UpdatedAt.Equal(fixedNow)
	})).Return(nil)
	db.On("LoadRelations", mock.Anything, "", []relations.Relation(nil)).Return(nil, nil)
	pub.On("Publish", mock.MatchedBy(func(a models.Activity) bool { return a.Type == models.ActivityEventUpdated })).Return(nil)

	name := "Renamed"
	event, _, err := svc.Update(context.Background(), owner, 4, models.UpdateEventRequest{
		Name:        &name,
		Description: utils.Optional[string]{Present: true},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", event.Name)
	assert.Nil(t, event.Description)
	db.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestUpdate_EmptyNameRejected(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, new(MockPublisher))
	db.On("GetEvent", int64(4)).Return(storedEvent(), nil)

	empty := ""
	_, _, err := svc.Update(context.Background(), owner, 4, models.UpdateEventRequest{Name: &empty}, "")
	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"The name field is required."}, verr.Fields["name"])
}

func TestUpdate_BlankNameRejected(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, new(MockPublisher))
	db.On("GetEvent", int64(4)).Return(storedEvent(), nil)

	blank := " \t "
	_, _, err := svc.Update(context.Background(), owner, 4, models.UpdateEventRequest{Name: &blank}, "")
	var verr *utils.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"The name field is required."}, verr.Fields["name"])
	db.AssertNotCalled(t, "UpdateEvent", mock.Anything)
}

func TestDelete(t *testing.T) {
	db, pub := new(MockEventDBLayer), new(MockPublisher)
	svc := newService(db, pub)
	ctx := context.Background()

	db.On("GetEvent", int64(4)).Return(storedEvent(), nil)
	db.On("DeleteEvent", int64(4)).Return(nil)
	pub.On("Publish", mock.MatchedBy(func(a models.Activity) bool { return a.Type == models.ActivityEventDeleted })).Return(nil)

	err := svc.Delete(ctx, stranger, 4)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	db.AssertNotCalled(t, "DeleteEvent", mock.Anything)

	require.NoError(t, svc.Delete(ctx, owner, 4))
	db.AssertCalled(t, "DeleteEvent", int64(4))
	pub.AssertExpectations(t)

	assert.ErrorIs(t, svc.Delete(ctx, nil, 4), utils.ErrUnauthenticated)
}

func TestList(t *testing.T) {
	db := new(MockEventDBLayer)
	svc := newService(db, nil)
	page := pagination.Params{Page: 1, PerPage: 15}

	db.On("ListEvents", page, "user").Return([]models.Event{*storedEvent()}, 1, relations.Set{relations.RelUser}, nil)
	got, err := svc.List(context.Background(), page, "user")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Len(t, got.Events, 1)
	assert.Equal(t, relations.Set{relations.RelUser}, got.Relations)
}
