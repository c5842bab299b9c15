package feedback_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dimasukma/backend-etalase/internal/cart"
	"github.com/dimasukma/backend-etalase/internal/catalog"
	"github.com/dimasukma/backend-etalase/internal/events"
	"github.com/dimasukma/backend-etalase/internal/feedback"
)

// manualScheduler captures scheduled dismiss callbacks so tests can fire or
// cancel them deterministically.
type manualScheduler struct {
	tasks []*manualTask
}

type manualTask struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

func (s *manualScheduler) schedule(d time.Duration, fn func()) func() {
	task := &manualTask{d: d, fn: fn}
	s.tasks = append(s.tasks, task)
	return func() { task.cancelled = true }
}

func (s *manualScheduler) fire(i int) {
	task := s.tasks[i]
	if !task.cancelled {
		task.fn()
	}
}

type stubConfirmer struct {
	answer bool
	calls  []string
}

func (c *stubConfirmer) Confirm(_ context.Context, title, message string) (bool, error) {
	c.calls = append(c.calls, title+": "+message)
	return c.answer, nil
}

func testProduct(id, stock int) *catalog.Product {
	return &catalog.Product{
		ID:                 id,
		Title:              "Wireless Mouse",
		Price:              25,
		DiscountPercentage: 0,
		Stock:              stock,
	}
}

func newEngine(confirm feedback.Confirmer) (*feedback.Engine, *cart.Store, *manualScheduler) {
	store := cart.NewStore()
	sched := &manualScheduler{}
	engine := feedback.NewEngine(store, confirm)
	engine.Schedule = sched.schedule
	return engine, store, sched
}

func TestAddItemNilProductIsNoOp(t *testing.T) {
	engine, store, _ := newEngine(nil)
	note := engine.AddItem(context.Background(), nil)
	require.False(t, note.Visible)
	require.Empty(t, store.Snapshot().Items)
}

func TestAddItemOutOfStock(t *testing.T) {
	engine, store, _ := newEngine(nil)
	note := engine.AddItem(context.Background(), testProduct(1, 0))
	require.Equal(t, feedback.KindError, note.Kind)
	require.Equal(t, feedback.MsgOutOfStock, note.Message)
	require.True(t, note.Visible)
	require.Empty(t, store.Snapshot().Items)
}

func TestAddItemStockLimitReached(t *testing.T) {
	engine, store, _ := newEngine(nil)
	p := testProduct(1, 2)
	require.Equal(t, feedback.KindAdded, engine.AddItem(context.Background(), p).Kind)
	require.Equal(t, feedback.KindAdded, engine.AddItem(context.Background(), p).Kind)

	note := engine.AddItem(context.Background(), p)
	require.Equal(t, feedback.KindError, note.Kind)
	require.Equal(t, feedback.MsgStockLimit, note.Message)
	require.Equal(t, 2, store.ItemQuantity(p.ID))
}

func TestAddItemSuccessMessage(t *testing.T) {
	engine, store, _ := newEngine(nil)
	note := engine.AddItem(context.Background(), testProduct(1, 5))
	require.Equal(t, feedback.KindAdded, note.Kind)
	require.Equal(t, "Added Wireless Mouse to cart", note.Message)
	require.Equal(t, 1, store.ItemQuantity(1))
}

func TestIncreaseQuantityGuardsStock(t *testing.T) {
	engine, store, _ := newEngine(nil)
	p := testProduct(1, 1)
	engine.AddItem(context.Background(), p)

	note := engine.IncreaseQuantity(context.Background(), p)
	require.Equal(t, feedback.KindError, note.Kind)
	require.Equal(t, feedback.MsgStockLimit, note.Message)
	require.Equal(t, 1, store.ItemQuantity(p.ID))
}

func TestIncreaseQuantitySuccess(t *testing.T) {
	engine, _, _ := newEngine(nil)
	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)

	note := engine.IncreaseQuantity(context.Background(), p)
	require.Equal(t, feedback.KindUpdated, note.Kind)
	require.Equal(t, "Increased quantity of Wireless Mouse", note.Message)
}

func TestDecreaseQuantityAtZero(t *testing.T) {
	engine, store, _ := newEngine(nil)
	note := engine.DecreaseQuantity(context.Background(), testProduct(1, 5))
	require.Equal(t, feedback.KindError, note.Kind)
	require.Equal(t, feedback.MsgMinimumReached, note.Message)
	require.Empty(t, store.Snapshot().Items)
}

func TestDecreaseQuantitySuccess(t *testing.T) {
	engine, store, _ := newEngine(nil)
	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)
	engine.IncreaseQuantity(context.Background(), p)

	note := engine.DecreaseQuantity(context.Background(), p)
	require.Equal(t, feedback.KindUpdated, note.Kind)
	require.Equal(t, "Decreased quantity of Wireless Mouse", note.Message)
	require.Equal(t, 1, store.ItemQuantity(p.ID))
}

func TestRemoveItemAbsentSkipsConfirmation(t *testing.T) {
	confirm := &stubConfirmer{answer: false}
	engine, _, _ := newEngine(confirm)

	removed, err := engine.RemoveItem(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, removed)
	require.Empty(t, confirm.calls)
}

func TestRemoveItemCancelled(t *testing.T) {
	confirm := &stubConfirmer{answer: false}
	engine, store, _ := newEngine(confirm)
	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)

	removed, err := engine.RemoveItem(context.Background(), p.ID)
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, 1, store.ItemQuantity(p.ID))
	require.Len(t, confirm.calls, 1)
	require.Contains(t, confirm.calls[0], `Remove "Wireless Mouse" from your cart?`)
}

func TestRemoveItemConfirmed(t *testing.T) {
	confirm := &stubConfirmer{answer: true}
	engine, store, _ := newEngine(confirm)
	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)

	removed, err := engine.RemoveItem(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, removed)
	require.Zero(t, store.ItemQuantity(p.ID))

	note := engine.Notification()
	require.Equal(t, feedback.KindRemoved, note.Kind)
	require.Equal(t, "Removed Wireless Mouse from cart", note.Message)
}

func TestClearCartEmptyResolvesImmediately(t *testing.T) {
	confirm := &stubConfirmer{answer: false}
	engine, _, _ := newEngine(confirm)

	cleared, err := engine.ClearCart(context.Background())
	require.NoError(t, err)
	require.True(t, cleared)
	require.Empty(t, confirm.calls)
}

func TestClearCartCancelled(t *testing.T) {
	confirm := &stubConfirmer{answer: false}
	engine, store, _ := newEngine(confirm)
	engine.AddItem(context.Background(), testProduct(1, 5))

	cleared, err := engine.ClearCart(context.Background())
	require.NoError(t, err)
	require.False(t, cleared)
	require.Len(t, store.Snapshot().Items, 1)
}

func TestClearCartConfirmed(t *testing.T) {
	confirm := &stubConfirmer{answer: true}
	engine, store, _ := newEngine(confirm)
	engine.AddItem(context.Background(), testProduct(1, 5))

	cleared, err := engine.ClearCart(context.Background())
	require.NoError(t, err)
	require.True(t, cleared)
	require.Empty(t, store.Snapshot().Items)
	require.Equal(t, feedback.MsgCartCleared, engine.Notification().Message)
}

func TestAutoDismissHidesNotification(t *testing.T) {
	engine, _, sched := newEngine(nil)
	engine.AddItem(context.Background(), testProduct(1, 5))
	require.True(t, engine.Notification().Visible)

	sched.fire(0)
	note := engine.Notification()
	require.False(t, note.Visible)
	require.Empty(t, note.Message)
}

// A stale timer from a replaced notification must never clear the newer one.
func TestReplacementSuppressesStaleTimer(t *testing.T) {
	engine, _, sched := newEngine(nil)
	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)
	engine.IncreaseQuantity(context.Background(), p)

	require.Len(t, sched.tasks, 2)
	require.True(t, sched.tasks[0].cancelled)

	// even if the first timer somehow fired, the generation guard holds
	sched.tasks[0].cancelled = false
	sched.fire(0)
	note := engine.Notification()
	require.True(t, note.Visible)
	require.Equal(t, "Increased quantity of Wireless Mouse", note.Message)

	sched.fire(1)
	require.False(t, engine.Notification().Visible)
}

func TestHideDismissesEarly(t *testing.T) {
	engine, _, sched := newEngine(nil)
	engine.AddItem(context.Background(), testProduct(1, 5))
	engine.Hide()
	require.False(t, engine.Notification().Visible)
	require.True(t, sched.tasks[0].cancelled)
}

func TestMutationsEmitEvents(t *testing.T) {
	capture := &captureNotifier{}
	bus := &events.Bus{Notifiers: []events.Notifier{capture}}
	confirm := &stubConfirmer{answer: true}
	engine, _, _ := newEngine(confirm)
	engine.Events = bus
	engine.SessionID = "sess-1"

	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)
	engine.IncreaseQuantity(context.Background(), p)
	engine.DecreaseQuantity(context.Background(), p)
	_, err := engine.RemoveItem(context.Background(), p.ID)
	require.NoError(t, err)

	topics := make([]string, 0, len(capture.events))
	for _, ev := range capture.events {
		require.Equal(t, "sess-1", ev.SessionID)
		topics = append(topics, ev.Topic)
	}
	require.Equal(t, []string{
		events.TopicItemAdded,
		events.TopicQuantityIncreased,
		events.TopicQuantityDecreased,
		events.TopicItemRemoved,
	}, topics)
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestContextConfirmerOverridesEngineConfirmer(t *testing.T) {
	engineConfirm := &stubConfirmer{answer: false}
	requestConfirm := &stubConfirmer{answer: true}
	engine, store, _ := newEngine(engineConfirm)
	p := testProduct(1, 5)
	engine.AddItem(context.Background(), p)

	ctx := feedback.WithConfirmer(context.Background(), requestConfirm)
	removed, err := engine.RemoveItem(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, removed)
	require.Zero(t, store.ItemQuantity(p.ID))
	require.Empty(t, engineConfirm.calls)
	require.Len(t, requestConfirm.calls, 1)
}

func TestConfirmerFromContextMissing(t *testing.T) {
	require.Nil(t, feedback.ConfirmerFromContext(context.Background()))
}

func TestConcurrentAddsNeverExceedStock(t *testing.T) {
	engine, store, _ := newEngine(nil)
	p := testProduct(1, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				engine.AddItem(context.Background(), p)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, store.ItemQuantity(p.ID))
}

func TestConcurrentIncreasesStopAtStock(t *testing.T) {
	engine, store, _ := newEngine(nil)
	p := testProduct(1, 3)
	engine.AddItem(context.Background(), p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				engine.IncreaseQuantity(context.Background(), p)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, store.ItemQuantity(p.ID))
}
