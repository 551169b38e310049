// Benchmark tool for measuring ScamSniper against a labelled message corpus.
//
// Usage:
//
//	go run ./cmd/benchmark -csv /path/to/messages.csv -url http://localhost:8000
//
// The CSV needs a label column ("spam"/"scam"/"1" are positives) and a text
// column, as in the common SMS spam collections. Each message is sent to
// POST /api/classify and the verdict is compared with the label.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Message is one labelled corpus row.
type Message struct {
	Text  string
	Scam  bool
	Index int
}

// ClassifyRequest is the /api/classify request format.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse is the /api/classify response format.
type ClassifyResponse struct {
	Status  string   `json:"status"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64

	TotalProcessed int64
	TotalScam      int64
	TotalHam       int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

var positiveLabels = map[string]bool{"spam": true, "scam": true, "1": true, "fraud": true, "phishing": true}

func main() {
	csvPath := flag.String("csv", "", "Path to labelled CSV file")
	baseURL := flag.String("url", "http://localhost:8000", "ScamSniper base URL")
	labelCol := flag.String("label-col", "label", "Name of the label column")
	textCol := flag.String("text-col", "text", "Name of the text column")
	limit := flag.Int("limit", 5000, "Maximum messages to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	strict := flag.Bool("strict", false, "Count only \"scam\" verdicts as positive (default also counts \"suspicious\")")
	verbose := flag.Bool("verbose", false, "Print each message result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/messages.csv [-url http://localhost:8000]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("ScamSniper benchmark - labelled message corpus")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("URL:         %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Strict:      %v\n", *strict)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: ScamSniper not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the server is running:")
		fmt.Println("  go run ./cmd/scamsniper")
		os.Exit(1)
	}
	fmt.Println("server is healthy")

	messages, err := readCorpus(*csvPath, *labelCol, *textCol, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	if len(messages) == 0 {
		fmt.Println("ERROR: no rows loaded")
		os.Exit(1)
	}

	scamCount := 0
	for _, m := range messages {
		if m.Scam {
			scamCount++
		}
	}
	fmt.Printf("loaded %d messages (%d scam, %d ham)\n", len(messages), scamCount, len(messages)-scamCount)

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	start := time.Now()
	metrics := runBenchmark(messages, *baseURL, *workers, *strict, *verbose)
	printResults(metrics, time.Since(start))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readCorpus(path, labelCol, textCol string, limit int) ([]Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	labelIdx, textIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case strings.ToLower(labelCol):
			labelIdx = i
		case strings.ToLower(textCol):
			textIdx = i
		}
	}
	if labelIdx < 0 || textIdx < 0 {
		return nil, fmt.Errorf("columns %q and %q are required, header is %v", labelCol, textCol, header)
	}

	var messages []Message
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) <= labelIdx || len(record) <= textIdx {
			continue
		}

		label := strings.ToLower(strings.TrimSpace(record[labelIdx]))
		messages = append(messages, Message{
			Text:  record[textIdx],
			Scam:  positiveLabels[label],
			Index: row,
		})

		if limit > 0 && len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func runBenchmark(messages []Message, baseURL string, numWorkers int, strict, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Message, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for msg := range work {
				start := time.Now()
				result, err := classify(client, baseURL, msg.Text)
				atomic.AddInt64(&metrics.ProcessingTimeMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: row %d -> %v\n", msg.Index, err)
					}
					continue
				}

				if msg.Scam {
					atomic.AddInt64(&metrics.TotalScam, 1)
				} else {
					atomic.AddInt64(&metrics.TotalHam, 1)
				}

				predicted := result.Status == "scam" || (!strict && result.Status == "suspicious")
				switch {
				case predicted && msg.Scam:
					atomic.AddInt64(&metrics.TruePositives, 1)
				case predicted && !msg.Scam:
					atomic.AddInt64(&metrics.FalsePositives, 1)
				case !predicted && !msg.Scam:
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				default:
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					mark := "ok  "
					if predicted != msg.Scam {
						mark = "MISS"
					}
					text := msg.Text
					if len(text) > 40 {
						text = text[:40]
					}
					fmt.Printf("%s row %-6d | scam: %-5v | %-10s (%5.1f) | %s\n",
						mark, msg.Index, msg.Scam, result.Status, result.Score, text)
				}
			}
		}()
	}

	for _, m := range messages {
		work <- m
	}
	close(work)
	wg.Wait()

	return metrics
}

func classify(client *http.Client, baseURL, text string) (*ClassifyResponse, error) {
	body, err := json.Marshal(ClassifyRequest{Text: text})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/api/classify", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ClassifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nRESULTS")

	fmt.Printf("\nDataset\n")
	fmt.Printf("   Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Scam:       %d\n", m.TotalScam)
	fmt.Printf("   Ham:        %d\n", m.TotalHam)
	fmt.Printf("   Errors:     %d\n", m.TotalErrors)

	fmt.Printf("\nConfusion matrix (rows actual, columns predicted)\n")
	fmt.Printf("              flagged   passed\n")
	fmt.Printf("   scam     %8d %8d\n", m.TruePositives, m.FalseNegatives)
	fmt.Printf("   ham      %8d %8d\n", m.FalsePositives, m.TrueNegatives)

	precision := ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
	recall := ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	accuracy := ratio(m.TruePositives+m.TrueNegatives, m.TruePositives+m.TrueNegatives+m.FalsePositives+m.FalseNegatives)

	fmt.Printf("\nDetection\n")
	fmt.Printf("   Precision:  %.4f\n", precision)
	fmt.Printf("   Recall:     %.4f\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)
	if m.TotalHam > 0 {
		fmt.Printf("   False alarms: %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalHam, 100*ratio(m.FalsePositives, m.TotalHam))
	}

	fmt.Printf("\nPerformance\n")
	fmt.Printf("   Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		fmt.Printf("   Avg latency: %.2f ms\n", float64(m.ProcessingTimeMs)/float64(m.TotalProcessed))
		fmt.Printf("   Throughput:  %.2f msg/sec\n", float64(m.TotalProcessed)/duration.Seconds())
	}
	fmt.Println()
}
