package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	serverAddr = flag.String("addr", "localhost:8080", "The server address in the format host:port")
)

type levelJSON struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Orders   int    `json:"orderCount"`
}

type tradeJSON struct {
	ID       uint64 `json:"id"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type snapshotJSON struct {
	Symbol  string      `json:"symbol"`
	Bids    []levelJSON `json:"bids"`
	Asks    []levelJSON `json:"asks"`
	Trades  []tradeJSON `json:"trades"`
	Metrics struct {
		TotalOrders uint64 `json:"totalOrders"`
		TotalTrades uint64 `json:"totalTrades"`
		Volume      string `json:"volume"`
		LastPrice   string `json:"lastPrice"`
	} `json:"metrics"`
}

type infoJSON struct {
	Active      string `json:"active"`
	Instruments []struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
		Frozen bool   `json:"frozen"`
	} `json:"instruments"`
	Clients int `json:"clients"`
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	switch command {
	case "info":
		flag.Parse()
		showInfo()
	case "book":
		symbol := flag.String("symbol", "", "Symbol to show (default: active)")
		flag.Parse()
		showBook(*symbol)
	case "watch":
		symbol := flag.String("symbol", "", "Symbol to watch (default: active)")
		interval := flag.Duration("interval", time.Second, "Refresh interval")
		flag.Parse()
		watchBook(*symbol, *interval)
	case "switch":
		flag.Parse()
		if flag.NArg() < 1 {
			fmt.Println("Usage: switch <symbol>")
			os.Exit(1)
		}
		switchStock(flag.Arg(0))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: client <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  info                     Show the instrument universe and active symbol")
	fmt.Println("  book [-symbol S]         Show an order book snapshot")
	fmt.Println("  watch [-symbol S]        Continuously render the book")
	fmt.Println("  switch <symbol>          Switch the active instrument")
}

func fetchSnapshot(symbol string) (*snapshotJSON, error) {
	url := fmt.Sprintf("http://%s/api/snapshot", *serverAddr)
	if symbol != "" {
		url += "?symbol=" + symbol
	}

	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var snap snapshotJSON
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func showInfo() {
	resp, err := http.Get(fmt.Sprintf("http://%s/api/info", *serverAddr))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch info")
	}
	defer resp.Body.Close()

	var info infoJSON
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode info")
	}

	cyan := color.New(color.FgCyan).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", cyan("Symbol"), cyan("Name"), cyan("Status"))
	for _, inst := range info.Instruments {
		status := ""
		if inst.Symbol == info.Active {
			status = yellow("ACTIVE")
		}
		if inst.Frozen {
			status = color.RedString("FROZEN")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", inst.Symbol, inst.Name, status)
	}
	w.Flush()
	fmt.Printf("\nConnected clients: %d\n", info.Clients)
}

func showBook(symbol string) {
	snap, err := fetchSnapshot(symbol)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch snapshot")
	}
	renderBook(snap)
}

func watchBook(symbol string, interval time.Duration) {
	for {
		snap, err := fetchSnapshot(symbol)
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch snapshot")
		} else {
			fmt.Print("\033[H\033[2J")
			renderBook(snap)
		}
		time.Sleep(interval)
	}
}

func renderBook(snap *snapshotJSON) {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	fmt.Printf("%s  last=%s  orders=%d  trades=%d  volume=%s\n\n",
		cyan("%s", snap.Symbol),
		snap.Metrics.LastPrice,
		snap.Metrics.TotalOrders,
		snap.Metrics.TotalTrades,
		snap.Metrics.Volume)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		cyan("Price"), cyan("Quantity"), cyan("Orders"), cyan("Side"))
	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		"---------------", "---------------", "---------------", "----")

	// Asks render worst to best so the spread sits in the middle.
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		level := snap.Asks[i]
		price, _ := strconv.ParseFloat(level.Price, 64)
		qty, _ := strconv.ParseFloat(level.Quantity, 64)
		fmt.Fprintf(w, "%15.3f|%15.3f|%15d|%s\n", price, qty, level.Orders, red("ASK"))
	}

	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		"---------------", "---------------", "---------------", "----")

	for _, level := range snap.Bids {
		price, _ := strconv.ParseFloat(level.Price, 64)
		qty, _ := strconv.ParseFloat(level.Quantity, 64)
		fmt.Fprintf(w, "%15.3f|%15.3f|%15d|%s\n", price, qty, level.Orders, green("BID"))
	}
	w.Flush()

	if len(snap.Trades) > 0 {
		fmt.Println("\nRecent trades:")
		for i, trade := range snap.Trades {
			if i >= 10 {
				break
			}
			fmt.Printf("  #%d  %s @ %s\n", trade.ID, trade.Quantity, trade.Price)
		}
	}
}

// switchStock changes the active instrument over the websocket feed
// and waits for the confirming snapshot.
func switchStock(symbol string) {
	url := fmt.Sprintf("ws://%s/ws", *serverAddr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer conn.Close()

	// Drain the initial snapshot frame.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		log.Fatal().Err(err).Msg("Failed to read initial snapshot")
	}

	msg := map[string]string{"type": "switch_stock", "symbol": symbol}
	if err := conn.WriteJSON(msg); err != nil {
		log.Fatal().Err(err).Msg("Failed to send switch request")
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		log.Fatal().Err(err).Msg("Failed to read reply")
	}

	if reply.Type == "error" {
		log.Fatal().RawJSON("data", reply.Data).Msg("Switch rejected")
	}
	log.Info().Str("symbol", symbol).Msg("Active instrument switched")
}
