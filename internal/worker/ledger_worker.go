package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"balemuya/internal/database"
	"balemuya/internal/events"
	"balemuya/internal/metrics"
	"balemuya/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	TaskAppend  = "append"
	TaskReplace = "replace"
)

// ledgerTaskPayload is persisted in SyncTask.Payload as JSON.
type ledgerTaskPayload struct {
	TransactionID int64               `json:"transaction_id"`
	Transaction   *models.Transaction `json:"transaction,omitempty"`
}

// LedgerWorker consumes sync_queue tasks and mirrors ledger entries to Google Sheets.
type LedgerWorker struct {
	db            *database.DB
	sheets        LedgerWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *log.Logger
}

// LedgerWriter is the sheet-side half of the worker.
type LedgerWriter interface {
	AppendTransaction(ctx context.Context, txn *models.Transaction) error
	ReplaceLedgerSheet(ctx context.Context, txns []*models.Transaction) error
}

// NewLedgerWorker builds a worker with sane defaults.
func NewLedgerWorker(db *database.DB, sheets LedgerWriter, redisClient *redis.Client, retry RetryPolicy, logger *log.Logger) *LedgerWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		logger = log.Default()
	}

	return &LedgerWorker{
		db:            db,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, models.SyncQueueSize),
		redisQueueKey: "ledger:queue",
		deadLetterKey: "ledger:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// SubscribeEvents wires the worker to posted-ledger events: every published
// transaction is enqueued for mirroring.
func (w *LedgerWorker) SubscribeEvents(bus *events.EventBus) {
	bus.Subscribe(events.EventTransactionPosted, func(event *events.Event) error {
		var payload events.TransactionEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode transaction event: %w", err)
		}
		txn, err := payload.Transaction()
		if err != nil {
			return err
		}
		if err := w.EnqueueTransaction(context.Background(), txn); err != nil {
			w.logger.Printf("ledger_worker: enqueue from event failed: %v", err)
			return err
		}
		return nil
	})
}

// EnqueueTransaction persists an append task and schedules it via redis or the in-memory queue.
func (w *LedgerWorker) EnqueueTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn == nil || txn.ID == 0 {
		return errors.New("transaction id is required")
	}

	payload := ledgerTaskPayload{
		TransactionID: txn.ID,
		Transaction:   txn,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType:      TaskAppend,
		TransactionID: txn.ID,
		Payload:       string(payloadBytes),
		Status:        "pending",
		CreatedAt:     time.Now(),
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Printf("ledger_worker: redis push failed, fallback to memory queue: %v", err)
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- syncTask:
	default:
		w.logger.Printf("ledger_worker: in-memory queue full, task %d dropped to polling", syncTask.ID)
	}

	return nil
}

// EnqueueFullResync persists a replace task that rewrites the whole ledger sheet.
func (w *LedgerWorker) EnqueueFullResync(ctx context.Context) error {
	syncTask := models.SyncTask{
		TaskType:  TaskReplace,
		Payload:   "{}",
		Status:    "pending",
		CreatedAt: time.Now(),
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	select {
	case w.queue <- syncTask:
	default:
	}

	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.logger.Printf("ledger_worker: started")
	defer w.logger.Printf("ledger_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Printf("ledger_worker: fetch pending: %v", err)
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *LedgerWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *LedgerWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Printf("ledger_worker: redis BRPOP error: %v", err)
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Printf("ledger_worker: decode redis task: %v", err)
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *LedgerWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleLedgerTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncSheetsSync("completed")
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Printf("ledger_worker: mark completed %d: %v", task.ID, err)
	}
}

func (w *LedgerWorker) handleLedgerTask(ctx context.Context, taskType string, payload ledgerTaskPayload) error {
	switch taskType {
	case TaskAppend:
		txn := payload.Transaction
		if txn == nil {
			// Older tasks may carry only the id.
			if payload.TransactionID == 0 {
				return errors.New("transaction payload missing")
			}
			loaded, err := w.loadTransaction(ctx, payload.TransactionID)
			if err != nil {
				return err
			}
			txn = loaded
		}
		return w.sheets.AppendTransaction(ctx, txn)
	case TaskReplace:
		txns, err := w.db.ListTransactionsInRange(ctx, time.Time{}, time.Now().AddDate(1, 0, 0))
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return w.sheets.ReplaceLedgerSheet(ctx, txns)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *LedgerWorker) loadTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	txns, err := w.db.ListTransactionsInRange(ctx, time.Time{}, time.Now().AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	for _, txn := range txns {
		if txn.ID == id {
			return txn, nil
		}
	}
	return nil, fmt.Errorf("transaction %d not found", id)
}

func (w *LedgerWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		metrics.IncSheetsSync("failed")
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Printf("ledger_worker: mark failed %d: %v", task.ID, err)
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	metrics.IncSheetsSync("retry")
	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Printf("ledger_worker: mark retry %d: %v", task.ID, err)
	}
}

func (w *LedgerWorker) failTask(ctx context.Context, task *models.SyncTask, err error) {
	metrics.IncSheetsSync("failed")
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", err.Error(), nil); err != nil {
		w.logger.Printf("ledger_worker: mark failed %d: %v", task.ID, err)
	}
	w.pushDeadLetter(ctx, task)
}

func (w *LedgerWorker) decodePayload(raw string) (ledgerTaskPayload, error) {
	var payload ledgerTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *LedgerWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *LedgerWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Printf("ledger_worker: encode deadletter %d: %v", task.ID, err)
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Printf("ledger_worker: deadletter push %d: %v", task.ID, err)
	}
}
