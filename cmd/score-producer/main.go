// Load generator that publishes synthetic quiz score submissions to Kafka.
// Useful for exercising the consumer path and the realtime leaderboard feed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/quizleague/backend/internal/domain"
)

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "quiz-scores", "Kafka topic")
	totalUsers := flag.Int("users", 500, "Number of distinct users to simulate")
	rate := flag.Int("rate", 50, "Submissions per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(*brokers, ","), config)
	if err != nil {
		log.Fatalf("failed to create producer: %v", err)
	}

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("producing score submissions: brokers=%s topic=%s users=%d rate=%d/s",
		*brokers, *topic, *totalUsers, *rate)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	shutdown := func() {
		producer.AsyncClose()
		wg.Wait()
		log.Printf("done. sent=%d errors=%d",
			atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	for {
		select {
		case <-sigChan:
			log.Println("shutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				log.Println("duration reached, shutting down...")
				shutdown()
				return
			}

			answered := rand.Intn(10) + 1
			correct := rand.Intn(answered + 1)
			sub := domain.ScoreSubmission{
				UserID:   fmt.Sprintf("%d", 100000+rand.Intn(*totalUsers)),
				QuizID:   fmt.Sprintf("quiz-%d", rand.Intn(20)+1),
				Points:   int64(correct * 10),
				Correct:  correct,
				Answered: answered,
			}

			data, err := json.Marshal(sub)
			if err != nil {
				log.Printf("failed to marshal submission: %v", err)
				continue
			}
			producer.Input() <- &sarama.ProducerMessage{
				Topic: *topic,
				Key:   sarama.StringEncoder(sub.UserID),
				Value: sarama.ByteEncoder(data),
			}
		}
	}
}
