package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"

	"github.com/annel0/twin-viewer/internal/eventbus"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/logging"
	"github.com/annel0/twin-viewer/internal/region"
	"github.com/annel0/twin-viewer/internal/scene"
	"github.com/annel0/twin-viewer/internal/vec"
)

// Consumer слушает поток телеметрии двойника: обновления позиций элементов
// и команды подсветки от автоматизации. Позиции применяются к сцене, команды
// пересылаются в оценщик регионов.
type Consumer struct {
	nc        *nats.Conn
	scene     *scene.Scene
	evaluator *region.Evaluator
	subs      []*nats.Subscription

	positions uint64
	commands  uint64
	malformed uint64
}

// PositionUpdate — сообщение телеметрии о перемещении элемента
type PositionUpdate struct {
	ElementID string  `json:"element_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// HighlightCommand — команда подсветки от внешней автоматизации
type HighlightCommand struct {
	RegionID        string `json:"region_id"`
	ElementID       string `json:"element_id"`
	Color           string `json:"color"` // hex, опционально
	WantHighlighted bool   `json:"want_highlighted"`
}

// NewConsumer подключается к NATS и создаёт потребитель телеметрии
func NewConsumer(url string, sc *scene.Scene, ev *region.Evaluator) (*Consumer, error) {
	if sc == nil {
		return nil, fmt.Errorf("feed: nil сцена")
	}
	if ev == nil {
		return nil, fmt.Errorf("feed: nil оценщик регионов")
	}

	nc, err := nats.Connect(url,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("feed: nats connect: %w", err)
	}

	return &Consumer{nc: nc, scene: sc, evaluator: ev}, nil
}

// Start подписывается на subjects телеметрии и команд
func (c *Consumer) Start(positionSubject, commandSubject string) error {
	if positionSubject != "" {
		sub, err := c.nc.Subscribe(positionSubject, func(msg *nats.Msg) {
			c.handlePosition(msg.Data)
		})
		if err != nil {
			return fmt.Errorf("feed: подписка на %s: %w", positionSubject, err)
		}
		c.subs = append(c.subs, sub)
		logging.Info("Feed: подписка на позиции %s активирована", positionSubject)
	}

	if commandSubject != "" {
		sub, err := c.nc.Subscribe(commandSubject, func(msg *nats.Msg) {
			c.handleCommand(msg.Data)
		})
		if err != nil {
			return fmt.Errorf("feed: подписка на %s: %w", commandSubject, err)
		}
		c.subs = append(c.subs, sub)
		logging.Info("Feed: подписка на команды %s активирована", commandSubject)
	}

	return nil
}

// Close отписывается и закрывает соединение с NATS
func (c *Consumer) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// Stats возвращает счётчики обработанных сообщений
func (c *Consumer) Stats() (positions, commands, malformed uint64) {
	return atomic.LoadUint64(&c.positions), atomic.LoadUint64(&c.commands), atomic.LoadUint64(&c.malformed)
}

// handlePosition применяет обновление позиции к сцене
func (c *Consumer) handlePosition(data []byte) {
	var upd PositionUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		atomic.AddUint64(&c.malformed, 1)
		logging.Warn("Feed: некорректное сообщение позиции: %v", err)
		return
	}

	if upd.ElementID == "" {
		atomic.AddUint64(&c.malformed, 1)
		logging.Warn("Feed: сообщение позиции без element_id")
		return
	}

	pos := vec.Vec3{X: upd.X, Y: upd.Y, Z: upd.Z}
	if !c.scene.SetPosition(upd.ElementID, pos) {
		logging.Debug("Feed: позиция для неизвестного элемента %q пропущена", upd.ElementID)
		return
	}

	atomic.AddUint64(&c.positions, 1)
	publishPositionUpdated(upd)
}

// handleCommand пересылает команду подсветки в оценщик регионов
func (c *Consumer) handleCommand(data []byte) {
	var cmd HighlightCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		atomic.AddUint64(&c.malformed, 1)
		logging.Warn("Feed: некорректная команда подсветки: %v", err)
		return
	}

	atomic.AddUint64(&c.commands, 1)

	if cmd.Color != "" {
		color, err := highlight.ParseColor(cmd.Color)
		if err != nil {
			logging.Warn("Feed: некорректный цвет %q в команде, используется цвет по умолчанию", cmd.Color)
			c.evaluator.RequestHighlight(cmd.RegionID, cmd.ElementID, cmd.WantHighlighted)
			return
		}
		c.evaluator.RequestHighlight(cmd.RegionID, cmd.ElementID, cmd.WantHighlighted, color)
		return
	}

	c.evaluator.RequestHighlight(cmd.RegionID, cmd.ElementID, cmd.WantHighlighted)
}

// publishPositionUpdated отправляет событие в глобальную шину
func publishPositionUpdated(upd PositionUpdate) {
	payload, err := json.Marshal(upd)
	if err != nil {
		return
	}

	_ = eventbus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "telemetry-feed",
		EventType: "PositionUpdated",
		Version:   1,
		Payload:   payload,
	})
}
