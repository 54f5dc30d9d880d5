package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/realtime-client/internal/protocol"
	"github.com/aaronwang/auction-client/shared/models"
)

var base = time.UnixMilli(1700000000000)

func message(auctionID, sender, content string, offset time.Duration) *models.Event {
	return models.NewMessageEvent(auctionID, sender, "", content, base.Add(offset))
}

type recorder struct {
	events []*models.Event
}

func (r *recorder) handle(e *models.Event) {
	r.events = append(r.events, e)
}

func TestDispatch_SuppressesDuplicateFingerprint(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.Subscribe("A1", rec.handle)

	from, ok := protocol.Decode("[Private from alice] [Auction:A1] hello")
	require.True(t, ok)
	echo, ok := protocol.Decode("[Private to bob] [Auction:A1] hello")
	require.True(t, ok)

	// both attribute "hello" to alice within the same second
	assert.True(t, r.Dispatch(from.Event("alice", base)))
	assert.False(t, r.Dispatch(echo.Event("alice", base.Add(300*time.Millisecond))))

	require.Len(t, rec.events, 1)
	assert.False(t, rec.events[0].IsOwnMessage)
	assert.Len(t, r.Timeline("A1").Events, 1)

	stats := r.Stats("A1")
	assert.Equal(t, 1, stats.Dispatched)
	assert.Equal(t, 1, stats.Suppressed)
}

func TestDispatch_NextSecondIsNotDuplicate(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.Subscribe("A1", rec.handle)

	assert.True(t, r.Dispatch(message("A1", "bob", "hi", 0)))
	assert.True(t, r.Dispatch(message("A1", "bob", "hi", time.Second)))
	assert.Len(t, rec.events, 2)
}

func TestDispatch_NoSubscribersDrops(t *testing.T) {
	r := New()
	assert.False(t, r.Dispatch(message("A1", "bob", "hi", 0)))
	assert.False(t, r.Dispatch(nil))

	unsubscribe := r.Subscribe("A1", func(*models.Event) {})
	unsubscribe()
	assert.False(t, r.Dispatch(message("A1", "bob", "hi", 0)))

	stats := r.Stats("A1")
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 0, stats.Events)
}

func TestDispatch_RegistrationOrder(t *testing.T) {
	r := New()
	var order []string
	r.Subscribe("A1", func(*models.Event) { order = append(order, "first") })
	r.Subscribe("A1", func(*models.Event) { order = append(order, "second") })
	r.Subscribe("A2", func(*models.Event) { order = append(order, "other topic") })

	r.Dispatch(message("A1", "bob", "hi", 0))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	r := New()
	kept := &recorder{}
	removed := &recorder{}
	r.Subscribe("A1", kept.handle)
	unsubscribe := r.Subscribe("A1", removed.handle)

	r.Dispatch(message("A1", "bob", "one", 0))
	unsubscribe()
	unsubscribe()
	r.Dispatch(message("A1", "bob", "two", 0))

	assert.Len(t, kept.events, 2)
	require.Len(t, removed.events, 1)
	assert.Equal(t, "one", removed.events[0].Content)
}

func TestUnsubscribe_SameHandlerRegisteredTwice(t *testing.T) {
	r := New()
	rec := &recorder{}
	first := r.Subscribe("A1", rec.handle)
	r.Subscribe("A1", rec.handle)

	first()
	r.Dispatch(message("A1", "bob", "hi", 0))
	assert.Len(t, rec.events, 1)
}

func TestDispatch_SubscribeDuringDispatchAffectsLaterEvents(t *testing.T) {
	r := New()
	late := &recorder{}
	var once bool
	r.Subscribe("A1", func(*models.Event) {
		if !once {
			once = true
			r.Subscribe("A1", late.handle)
		}
	})

	r.Dispatch(message("A1", "bob", "one", 0))
	assert.Empty(t, late.events)
	r.Dispatch(message("A1", "bob", "two", 0))
	assert.Len(t, late.events, 1)
}

func TestMerge_HistoryThenLiveIsOneRow(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.Subscribe("A1", rec.handle)

	history := message("A1", "seller1", "Still available", 200*time.Millisecond)
	history.FromHistory = true
	assert.Equal(t, 1, r.Merge("A1", []*models.Event{history}))

	assert.False(t, r.Dispatch(message("A1", "seller1", "Still available", 700*time.Millisecond)))
	assert.Empty(t, rec.events)

	// re-seeding is idempotent
	assert.Equal(t, 0, r.Merge("A1", []*models.Event{history}))
	assert.Len(t, r.Timeline("A1").Events, 1)
}

func TestMerge_OrdersByTimestamp(t *testing.T) {
	r := New()
	r.Subscribe("A1", func(*models.Event) {})
	r.Dispatch(message("A1", "bob", "live", 5*time.Second))

	r.Merge("A1", []*models.Event{
		message("A1", "alice", "second", 2*time.Second),
		message("A1", "alice", "first", time.Second),
	})

	tl := r.Timeline("A1")
	require.Len(t, tl.Events, 3)
	assert.Equal(t, []string{"first", "second", "live"}, []string{tl.Events[0].Content, tl.Events[1].Content, tl.Events[2].Content})
}

func TestTimeline_States(t *testing.T) {
	r := New()
	assert.Equal(t, StateLoading, r.Timeline("A1").State())

	r.Subscribe("A1", func(*models.Event) {})
	assert.Equal(t, StateLoading, r.Timeline("A1").State())

	// a live event populates the timeline before history arrives
	require.True(t, r.Dispatch(message("A1", "bob", "early", 0)))
	assert.Equal(t, StatePopulated, r.Timeline("A1").State())
	assert.Equal(t, "populated", r.Stats("A1").State)

	r.MarkLoaded("A1", assert.AnError)
	tl := r.Timeline("A1")
	assert.Equal(t, StatePopulated, tl.State())
	assert.Equal(t, assert.AnError.Error(), tl.Err)

	r.MarkLoaded("A2", nil)
	assert.Equal(t, StateEmpty, r.Timeline("A2").State())
	assert.Equal(t, "empty", r.Stats("A2").State)

	assert.Equal(t, []string{"A1", "A2"}, r.Topics())
}

func TestTimeline_SurvivesUnsubscribe(t *testing.T) {
	r := New()
	unsubscribe := r.Subscribe("A1", func(*models.Event) {})
	r.Dispatch(message("A1", "bob", "hi", 0))
	unsubscribe()

	assert.Len(t, r.Timeline("A1").Events, 1)
	assert.Equal(t, 0, r.Stats("A1").Subscribers)
}

func TestAcceptHook(t *testing.T) {
	var accepted []string
	r := New(WithAcceptHook(func(e *models.Event) { accepted = append(accepted, e.Content) }))
	r.Subscribe("A1", func(*models.Event) {})

	r.Dispatch(message("A1", "bob", "hi", 0))
	r.Dispatch(message("A1", "bob", "hi", 0))
	r.Merge("A1", []*models.Event{message("A1", "bob", "old", -time.Hour)})

	assert.Equal(t, []string{"hi"}, accepted)
}

func TestScenario_SellerMessage(t *testing.T) {
	r := New()
	rec := &recorder{}
	r.Subscribe("AUC-100", rec.handle)

	frame, ok := protocol.Decode("[Private from seller1] [Auction:AUC-100] Is this still available?")
	require.True(t, ok)
	r.Dispatch(frame.Event("alice", time.Now()))

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, "seller1", e.Sender)
	assert.Equal(t, "Is this still available?", e.Content)
	assert.False(t, e.IsOwnMessage)
}
