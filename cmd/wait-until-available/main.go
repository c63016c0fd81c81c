package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/dirk.krummacker/relationship-service/internal/logx"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/healthz -timeout=2m
func main() {
	url := flag.String("url", "http://localhost:8080/healthz", "the health check to poll")
	interval := flag.Duration("interval", 5*time.Second, "time between two attempts")
	timeout := flag.Duration("timeout", 0, "give up after this long, 0 waits forever")
	flag.Parse()
	logx.Init(logx.Config{PrettyFormat: true})

	client := &http.Client{Timeout: *interval}
	started := time.Now()
	for {
		res, err := client.Get(*url)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				log.Info().Str("url", *url).Dur("waited", time.Since(started)).Msg("service is available")
				return
			}
			log.Info().Int("status", res.StatusCode).Msg("service is not healthy yet")
		} else {
			log.Info().Err(err).Msg("service is not reachable yet")
		}
		if *timeout > 0 && time.Since(started) > *timeout {
			log.Error().Dur("waited", time.Since(started)).Msg("giving up")
			os.Exit(1)
		}
		time.Sleep(*interval)
	}
}
