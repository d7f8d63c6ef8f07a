package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farmer96/LuckGen/internal/models"
)

func TestKafka_PublishDraw(t *testing.T) {
	prizeID := "p1"
	record := &models.DrawRecord{
		ID:        "r1",
		Timestamp: models.NewTime(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)),
		UserPhone: "13800000000",
		PrizeID:   &prizeID,
		PrizeName: "电视",
	}

	t.Run("sends encoded event", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var ev DrawEvent
			if err := json.Unmarshal(val, &ev); err != nil {
				return err
			}
			if ev.ConfigID != "lottery-1" || ev.Record.ID != "r1" || *ev.Record.PrizeID != "p1" {
				return errors.New("unexpected event payload")
			}
			return nil
		})

		k := NewKafka(producer, "luckgen.draws")
		require.NoError(t, k.PublishDraw(context.Background(), "lottery-1", record))
		require.NoError(t, k.Close())
	})

	t.Run("surfaces send failure", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		k := NewKafka(producer, "luckgen.draws")
		err := k.PublishDraw(context.Background(), "lottery-1", record)
		assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
		require.NoError(t, k.Close())
	})
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.PublishDraw(context.Background(), "x", &models.DrawRecord{}))
}
