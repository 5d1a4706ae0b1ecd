package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/logger"
	tradev1 "github.com/muhammadchandra19/exchange/services/candle-service/internal/domain/trade/v1"
	tradepublisher "github.com/muhammadchandra19/exchange/services/candle-service/internal/usecase/trade-publisher"
	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
	"github.com/shopspring/decimal"
)

func main() {
	var (
		brokers   = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic     = flag.String("topic", "trades", "Kafka topic name")
		file      = flag.String("file", "", "JSON file with trades (optional, generates trades if not provided)")
		delay     = flag.Duration("delay", 100*time.Millisecond, "Delay between sending trades")
		count     = flag.Int("count", 1000, "Number of trades to generate")
		symbols   = flag.String("symbols", "BTC/USD,ETH/USD", "Symbols to generate trades for (comma-separated)")
		basePrice = flag.Float64("base-price", 64000, "Starting price of every symbol")
		spread    = flag.Float64("price-spread", 50, "Maximum price move between two trades")
		step      = flag.Duration("step", time.Second, "Event time between two generated trades")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	publisher := tradepublisher.NewPublisher(config.KafkaConfig{
		Brokers:      strings.Split(*brokers, ","),
		TradesTopic:  *topic,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}, appLogger)
	defer publisher.Close()

	var trades []tradev1.Trade
	if *file != "" {
		trades, err = loadTrades(*file)
		if err != nil {
			log.Fatalf("Failed to load trades: %v", err)
		}
		log.Printf("Loaded %d trades from file: %s", len(trades), *file)
	} else {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		trades = generateTrades(r, strings.Split(*symbols, ","), *count, *basePrice, *spread, time.Now().UTC(), *step)
		log.Printf("Generated %d trades", len(trades))
	}

	log.Printf("Sending trades to Kafka broker: %s, topic: %s", *brokers, *topic)

	sent := 0
	volume := make(map[string]decimal.Decimal)
	for i, t := range trades {
		if ctx.Err() != nil {
			break
		}
		if err := publisher.Publish(ctx, t); err != nil {
			log.Printf("Failed to send trade %d (%s): %v", i+1, t.Symbol, err)
			continue
		}
		sent++
		volume[t.Symbol] = volume[t.Symbol].Add(t.Quantity)

		if (i+1)%100 == 0 || i == len(trades)-1 {
			log.Printf("Sent trade %d/%d: %s | %s @ %s", i+1, len(trades), t.Symbol, t.Quantity, t.Price)
		}

		if i < len(trades)-1 {
			time.Sleep(*delay)
		}
	}

	log.Printf("--- Summary ---")
	log.Printf("Total Trades: %d", len(trades))
	log.Printf("Sent: %d", sent)
	for symbol, v := range volume {
		log.Printf("%s volume: %s", symbol, v)
	}
}
