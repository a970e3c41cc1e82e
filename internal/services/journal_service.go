package services

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"canvas-service/internal/board"
)

// StrokeJournal publishes every structural change to a room's history
// (commit, undo, redo) to a Kafka topic, keyed by room id so one room's
// records stay ordered within a partition. The journal is write-only and
// fire-and-forget: Record never blocks the event loop, a single writer
// goroutine drains the queue, and a full queue drops records rather than
// stalling drawing.
type StrokeJournal struct {
	producer sarama.SyncProducer
	topic    string
	records  chan *sarama.ProducerMessage
	logger   *slog.Logger
}

// strokeRecord is the journal wire format. Only commits carry the full path;
// undo and redo reference it by id since the committed record already has the
// geometry.
type strokeRecord struct {
	RoomID    string      `json:"roomId"`
	Action    string      `json:"action"`
	PathID    string      `json:"pathId"`
	UserID    string      `json:"userId,omitempty"`
	Points    int         `json:"points"`
	Tool      board.Tool  `json:"tool"`
	Timestamp int64       `json:"timestamp"`
	Path      *board.Path `json:"path,omitempty"`
}

func NewStrokeJournal(producer sarama.SyncProducer, topic string, logger *slog.Logger) *StrokeJournal {
	if logger == nil {
		logger = slog.Default()
	}
	return &StrokeJournal{
		producer: producer,
		topic:    topic,
		records:  make(chan *sarama.ProducerMessage, 256),
		logger:   logger,
	}
}

// Run drains the record queue until Close is called.
func (j *StrokeJournal) Run() {
	for msg := range j.records {
		if _, _, err := j.producer.SendMessage(msg); err != nil {
			j.logger.Error("failed to publish journal record", "topic", j.topic, "error", err)
		}
	}
}

// Close stops the writer goroutine. Queued records are still flushed by Run.
func (j *StrokeJournal) Close() {
	close(j.records)
}

// Record implements board.Journal.
func (j *StrokeJournal) Record(roomID, action string, path *board.Path) {
	rec := strokeRecord{
		RoomID:    roomID,
		Action:    action,
		PathID:    path.ID,
		UserID:    path.UserID,
		Points:    len(path.Points),
		Tool:      path.Tool,
		Timestamp: time.Now().Unix(),
	}
	if action == board.ActionCommit {
		rec.Path = path
	}

	value, err := json.Marshal(rec)
	if err != nil {
		j.logger.Error("failed to encode journal record", "roomID", roomID, "action", action, "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: j.topic,
		Key:   sarama.StringEncoder(roomID),
		Value: sarama.ByteEncoder(value),
	}

	select {
	case j.records <- msg:
	default:
		j.logger.Warn("journal queue full, dropping record", "roomID", roomID, "action", action)
	}
}
