package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/contactkeval/option-surrogate/internal/data"
	"github.com/contactkeval/option-surrogate/internal/experiment"
	"github.com/contactkeval/option-surrogate/internal/pricing"
	"github.com/contactkeval/option-surrogate/internal/report"
)

func main() {
	configPath := flag.String("config", "experiment.json", "path to JSON config")
	rest := flag.Bool("rest", false, "run as REST server (accept experiment jobs)")
	port := flag.String("port", ":8080", "REST server listen address")
	flag.Parse()

	cfgData, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("reading config: %v", err)
	}

	var cfg experiment.Config
	if err := json.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// choose provider
	var prov data.Provider
	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey != "" {
		prov = data.NewMassiveDataProvider(apiKey)
		log.Printf("[info] polygon provider enabled")
	} else {
		prov = data.NewSyntheticProvider(cfg.Data.Seed)
		log.Printf("[info] synthetic provider enabled")
	}

	engine := experiment.NewEngine(&cfg, prov)

	if *rest {
		mux := http.NewServeMux()
		mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
			// run one experiment with the loaded config
			log.Printf("[info] received /run request")
			res, err := engine.Run()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(res)
		})
		mux.HandleFunc("/price", handleQuote)
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		log.Printf("[info] starting REST server on %s", *port)
		log.Fatal(http.ListenAndServe(*port, mux))
		return
	}

	start := time.Now()
	res, err := engine.Run()
	if err != nil {
		log.Fatalf("experiment failed: %v", err)
	}

	outdir := cfg.ReportDir
	if outdir == "" {
		outdir = "out"
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		log.Printf("[warn] could not create output dir %s: %v", outdir, err)
	}
	if err := report.WriteJSON(res, outdir); err != nil {
		log.Printf("[warn] writing summary: %v", err)
	}
	if err := report.WriteHistoryCSV(res.History, outdir); err != nil {
		log.Printf("[warn] writing loss history: %v", err)
	}
	if err := report.WriteComparisonCSV(res.Comparison, outdir); err != nil {
		log.Printf("[warn] writing comparison: %v", err)
	}
	log.Printf("[done] finished in %v, test_mse=%g, wrote %d comparison rows to %s",
		time.Since(start), res.TestMSE, len(res.Comparison), outdir)
}

// handleQuote prices a single option from query parameters:
// /price?type=call&spot=100&strike=100&ttm=1&rate=0.05&vol=0.2
func handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	parse := func(key string) (float64, bool) {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		if err != nil {
			http.Error(w, "bad or missing parameter: "+key, http.StatusBadRequest)
			return 0, false
		}
		return v, true
	}

	spot, ok := parse("spot")
	if !ok {
		return
	}
	strike, ok := parse("strike")
	if !ok {
		return
	}
	ttm, ok := parse("ttm")
	if !ok {
		return
	}
	rate, ok := parse("rate")
	if !ok {
		return
	}
	vol, ok := parse("vol")
	if !ok {
		return
	}

	optType := pricing.OptionType(q.Get("type"))
	if optType == "" {
		optType = pricing.Call
	}

	price, err := pricing.Price(optType, spot, strike, ttm, rate, vol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]float64{"price": price})
}
