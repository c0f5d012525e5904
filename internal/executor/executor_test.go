package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"astock-signal-trader-go/internal/config"
	"astock-signal-trader-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingBus captures everything published so tests can inspect the wire
// bodies. Consume replays the canned messages and then blocks on ctx.
type recordingBus struct {
	published  []publishedMessage
	publishErr error
	messages   [][]byte
}

type publishedMessage struct {
	exchange   string
	routingKey string
	body       []byte
}

func (b *recordingBus) Publish(exchange, routingKey string, body []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{exchange, routingKey, body})
	return nil
}

func (b *recordingBus) Consume(ctx context.Context, queue string, handler func([]byte) error) error {
	for _, msg := range b.messages {
		if err := handler(msg); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func newTestExecutor(bus *recordingBus) *Executor {
	cfg := &config.Config{
		Executor: config.Executor{Name: "alpha", AccountQueue: "account.alpha"},
		Trading: config.Trading{
			FeeRate:     0.002,
			LotSize:     100,
			StarPrefix:  "688",
			StarLotSize: 200,
		},
		MQ: config.MQ{OrderExchange: "orders"},
	}
	return NewExecutor(cfg, zap.NewNop(), bus, nil)
}

func seedAccount(t *testing.T, e *Executor, funds float64, positions map[string]PositionSnapshot) {
	t.Helper()
	snap := AccountSnapshot{AvailableMoney: funds, Positions: positions}
	body, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, e.handleSnapshot(body))
}

func TestOrderBuySizing(t *testing.T) {
	testCases := []struct {
		name      string
		funds     float64
		symbol    string
		price     float64
		requested int64
		wantQty   int64 // 0 means dropped
	}{
		{
			// 150*100*1.002 = 15030 > 10000; clamp = floor(10000/100/100)*100
			name:      "Clamped to affordable lot",
			funds:     10000,
			symbol:    "600000.SH",
			price:     100,
			requested: 150,
			wantQty:   100,
		},
		{
			name:      "Affordable request passes through unrounded",
			funds:     100000,
			symbol:    "600000.SH",
			price:     100,
			requested: 150,
			wantQty:   150,
		},
		{
			name:      "Insufficient funds for a single lot",
			funds:     5000,
			symbol:    "600000.SH",
			price:     100,
			requested: 100,
			wantQty:   0,
		},
		{
			// Funds cover 250 shares; the sub-floor request is raised to the
			// star-board minimum lot.
			name:      "Star board raised to minimum lot",
			funds:     25000,
			symbol:    "688001.SH",
			price:     100,
			requested: 50,
			wantQty:   200,
		},
		{
			// Funds cover only 150 shares, not the 200 floor: the clamped
			// quantity stands.
			name:      "Star board floor unaffordable",
			funds:     15000,
			symbol:    "688001.SH",
			price:     100,
			requested: 300,
			wantQty:   100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &recordingBus{}
			e := newTestExecutor(bus)
			seedAccount(t, e, tc.funds, nil)

			inst, err := e.Order(tc.symbol, models.DirectionBuy, tc.price, tc.requested, "limit")
			assert.NoError(t, err)

			if tc.wantQty == 0 {
				assert.Nil(t, inst)
				assert.Empty(t, bus.published)
				return
			}

			require.NotNil(t, inst)
			assert.Equal(t, tc.wantQty, inst.Quanty)
			require.Len(t, bus.published, 1)
			assert.Equal(t, "orders", bus.published[0].exchange)
			assert.Equal(t, "trader.alpha", bus.published[0].routingKey)

			var wire OrderInstruction
			require.NoError(t, json.Unmarshal(bus.published[0].body, &wire))
			assert.Equal(t, tc.wantQty, wire.Quanty)
			assert.Equal(t, models.DirectionBuy, wire.Direct)
			assert.Equal(t, tc.symbol, wire.Symbol)
		})
	}
}

func TestOrderSellSizing(t *testing.T) {
	positions := map[string]PositionSnapshot{
		"600000.SH": {Quanty: 500, AvailableQuanty: 300},
		"688001.SH": {Quanty: 400, AvailableQuanty: 250},
		"688002.SH": {Quanty: 150, AvailableQuanty: 150},
		"000001.SZ": {Quanty: 100, AvailableQuanty: 0},
	}

	testCases := []struct {
		name      string
		symbol    string
		requested int64
		wantQty   int64
	}{
		{"Clamped to available position", "600000.SH", 1000, 300},
		{"Within available position", "600000.SH", 200, 200},
		{"No tracked position", "300750.SZ", 100, 0},
		{"Zero available quantity", "000001.SZ", 100, 0},
		{"Star board raised to minimum lot", "688001.SH", 50, 200},
		{"Star board below floor with small position", "688002.SH", 50, 50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &recordingBus{}
			e := newTestExecutor(bus)
			seedAccount(t, e, 1_000_000, positions)

			inst, err := e.Order(tc.symbol, models.DirectionSell, 10, tc.requested, "limit")
			assert.NoError(t, err)

			if tc.wantQty == 0 {
				assert.Nil(t, inst)
				assert.Empty(t, bus.published)
				return
			}

			require.NotNil(t, inst)
			assert.Equal(t, tc.wantQty, inst.Quanty)
		})
	}
}

func TestOrderRejections(t *testing.T) {
	t.Run("NoAccountSnapshotYet", func(t *testing.T) {
		bus := &recordingBus{}
		e := newTestExecutor(bus)

		inst, err := e.Order("600000.SH", models.DirectionBuy, 10, 100, "limit")
		assert.NoError(t, err)
		assert.Nil(t, inst)
		assert.Empty(t, bus.published)
	})

	t.Run("UndispatchableDirection", func(t *testing.T) {
		bus := &recordingBus{}
		e := newTestExecutor(bus)
		seedAccount(t, e, 100000, nil)

		for _, direct := range []models.Direction{models.DirectionClose, models.DirectionBuyAll, "HOLD"} {
			inst, err := e.Order("600000.SH", direct, 10, 100, "limit")
			assert.NoError(t, err)
			assert.Nil(t, inst)
		}
		assert.Empty(t, bus.published)
	})

	t.Run("PublishFailurePropagates", func(t *testing.T) {
		bus := &recordingBus{publishErr: fmt.Errorf("broker unreachable")}
		e := newTestExecutor(bus)
		seedAccount(t, e, 100000, nil)

		inst, err := e.Order("600000.SH", models.DirectionBuy, 10, 100, "limit")
		assert.Error(t, err)
		assert.Nil(t, inst)
	})
}

func TestOrderSizingIsIdempotent(t *testing.T) {
	bus := &recordingBus{}
	e := newTestExecutor(bus)
	seedAccount(t, e, 10000, nil)

	first, err := e.Order("600000.SH", models.DirectionBuy, 100, 150, "limit")
	require.NoError(t, err)
	second, err := e.Order("600000.SH", models.DirectionBuy, 100, 150, "limit")
	require.NoError(t, err)

	// Sizing is a pure function of (request, cached account, cached
	// position); resubmitting against unchanged state yields the same order.
	assert.Equal(t, first, second)
}

func TestExecuteAdvancesSignalStatus(t *testing.T) {
	bar := &models.Bar{Symbol: "600000.SH", Datetime: time.Now(), Last: 100}

	t.Run("Submitted", func(t *testing.T) {
		bus := &recordingBus{}
		e := newTestExecutor(bus)
		seedAccount(t, e, 100000, nil)

		sig := models.NewSignal("", bar, 100, models.DirectionBuy, 0, 0, 0, 0, "", false, 0)
		require.NoError(t, e.Execute(sig, "limit"))
		assert.Equal(t, models.StatusSubmit, sig.Status())
	})

	t.Run("Dropped", func(t *testing.T) {
		bus := &recordingBus{}
		e := newTestExecutor(bus)
		seedAccount(t, e, 50, nil) // not even one lot

		sig := models.NewSignal("", bar, 100, models.DirectionBuy, 0, 0, 0, 0, "", false, 0)
		require.NoError(t, e.Execute(sig, "limit"))
		assert.Equal(t, models.StatusDrop, sig.Status())
	})
}

func TestHandleSnapshot(t *testing.T) {
	t.Run("WholesaleReplace", func(t *testing.T) {
		e := newTestExecutor(&recordingBus{})
		seedAccount(t, e, 10000, map[string]PositionSnapshot{
			"600000.SH": {Quanty: 500, AvailableQuanty: 300},
		})

		oldAccount := e.Account()
		oldPosition := e.Position("600000.SH")

		seedAccount(t, e, 20000, map[string]PositionSnapshot{
			"000001.SZ": {Quanty: 100, AvailableQuanty: 100},
		})

		// The earlier snapshot a reader may still hold is untouched; the new
		// state arrives as fresh values, never a field merge.
		assert.Equal(t, 10000.0, oldAccount.AvailableFunds)
		assert.Equal(t, int64(300), oldPosition.AvailableQuantity)
		assert.Equal(t, 20000.0, e.Account().AvailableFunds)
		assert.Nil(t, e.Position("600000.SH"))
		assert.NotNil(t, e.Position("000001.SZ"))
	})

	t.Run("PositionsOmittedKeepsOld", func(t *testing.T) {
		e := newTestExecutor(&recordingBus{})
		seedAccount(t, e, 10000, map[string]PositionSnapshot{
			"600000.SH": {Quanty: 500, AvailableQuanty: 300},
		})
		seedAccount(t, e, 12000, nil)

		assert.Equal(t, 12000.0, e.Account().AvailableFunds)
		assert.NotNil(t, e.Position("600000.SH"))
	})

	t.Run("MalformedPayloadIsHardError", func(t *testing.T) {
		e := newTestExecutor(&recordingBus{})
		err := e.handleSnapshot([]byte("{not json"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "malformed account snapshot")
	})

	t.Run("EmbeddedOrderDispatched", func(t *testing.T) {
		bus := &recordingBus{}
		e := newTestExecutor(bus)

		snap := AccountSnapshot{
			AvailableMoney: 100000,
			Order: &OrderRequest{
				Direct: models.DirectionBuy,
				Symbol: "600000.SH",
				Quanty: 100,
				Price:  100,
				Type:   "limit",
			},
		}
		body, err := json.Marshal(snap)
		require.NoError(t, err)
		require.NoError(t, e.handleSnapshot(body))

		// The order was sized against the snapshot that carried it.
		require.Len(t, bus.published, 1)
		assert.Equal(t, "trader.alpha", bus.published[0].routingKey)
	})
}

func TestSyncAccount(t *testing.T) {
	t.Run("ConsumesUntilCancelled", func(t *testing.T) {
		bus := &recordingBus{messages: [][]byte{
			[]byte(`{"available_money": 5000}`),
			[]byte(`{"available_money": 7500}`),
		}}
		e := newTestExecutor(bus)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- e.SyncAccount(ctx) }()

		assert.Eventually(t, func() bool {
			acct := e.Account()
			return acct != nil && acct.AvailableFunds == 7500
		}, time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("MalformedMessageStopsLoop", func(t *testing.T) {
		bus := &recordingBus{messages: [][]byte{[]byte("garbage")}}
		e := newTestExecutor(bus)

		err := e.SyncAccount(context.Background())
		assert.Error(t, err)
	})
}
