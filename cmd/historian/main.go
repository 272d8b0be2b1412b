// cmd/historian is an asynchronous service that pops room action records
// from the Redis queue and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/AnnkoATAMA/tensai/internal/cache"
	"github.com/AnnkoATAMA/tensai/internal/database"
)

// HistorianService couples the Redis queue with batched Postgres writes.
type HistorianService struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu sync.Mutex
	batch   []cache.RoomActionRecord

	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService builds the service from environment variables.
func NewHistorianService() *HistorianService {
	rdb := redis.NewClient(&redis.Options{
		Addr: cache.GetEnv("REDIS_ADDR", "localhost:6379"),
		DB:   cache.GetEnvInt("REDIS_DB", 0),
	})

	batchSize := cache.GetEnvInt("HISTORIAN_BATCH_SIZE", 20)
	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		queueName:   cache.GetEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(cache.GetEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		batch:       make([]cache.RoomActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and consumes the queue until cancelled.
func (hs *HistorianService) Run() {
	database.ConnectDB()
	defer database.DB.Close()

	go hs.readRedisLoop()

	log.Println("tensai-historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB()
	log.Println("tensai-historian shutting down.")
}

// readRedisLoop pops records with BLPop and flushes the batch when it fills
// or when the flush interval elapses.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, hs.queueName).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && hs.ctx.Err() == nil {
					log.Printf("[ERROR] BLPop: %v", err)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.RoomActionRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid action record: %v", err)
				continue
			}

			hs.batchMu.Lock()
			hs.batch = append(hs.batch, record)
			full := len(hs.batch) >= hs.batchSize
			hs.batchMu.Unlock()
			if full {
				hs.flushBatchToDB()
			}
		}
	}
}

// flushBatchToDB writes the accumulated records in one transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	records := hs.batch
	hs.batch = make([]cache.RoomActionRecord, 0, hs.batchSize)
	hs.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO room_actions (room_id, actor_id, action_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, rec := range records {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, q,
				rec.RoomID, rec.ActorID, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] failed to flush %d action records: %v", len(records), err)
		return
	}
	log.Printf("flushed %d action records", len(records))
}

func main() {
	hs := NewHistorianService()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		hs.cancelFn()
	}()

	hs.Run()
}
