package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sachaservan/annlsh/anns"
	"github.com/sachaservan/annlsh/fvecs"
)

func main() {
	// command-line arguments
	var args struct {
		Base       string `arg:"required" help:"fvecs file with the vectors to index"`
		Queries    string `arg:"required" help:"fvecs file with query vectors"`
		QueryIndex int    `default:"0" help:"which query vector to search for"`
		Config     string `help:"YAML or JSON file with lsh/detlsh parameters"`

		// lsh parameters (overridden by --config)
		NumProjections  int     `default:"50" help:"K, hash functions per table"`
		NumTables       int     `default:"16" help:"L, number of hash tables"`
		ProjectionWidth float64 `default:"5" help:"w, bucket width"`
		BucketSize      int     `default:"0" help:"max ids per bucket, 0 for no limit"`
		Seed            int64   `default:"0" help:"hash family seed, 0 for time based"`

		// exact baseline
		Neighbors int `default:"10" help:"number of exact nearest neighbors to report"`

		// DET-LSH stage
		DETLSH      bool    `arg:"--detlsh" help:"also run a DE-Tree range query over encoded projections"`
		SampleSize  int     `default:"20"`
		NumRegions  int     `default:"8"`
		MaxLeafSize int     `default:"10"`
		Radius      float64 `default:"1"`

		Verbose bool
	}

	arg.MustParse(&args)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if args.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := Config{
		LSH: anns.LSHParams{
			NumProjections:  args.NumProjections,
			NumTables:       args.NumTables,
			ProjectionWidth: args.ProjectionWidth,
			BucketSize:      args.BucketSize,
		},
		DETLSH: anns.DETLSHParams{
			SampleSize:  args.SampleSize,
			NumRegions:  args.NumRegions,
			MaxLeafSize: args.MaxLeafSize,
		},
		Seed: args.Seed,
	}

	if args.Config != "" {
		var err error
		if cfg, err = loadConfig(args.Config, cfg); err != nil {
			log.Fatal().Err(err).Msg("loading config")
		}
	}

	// 1. load the dataset and the query point
	dataset, err := fvecs.ReadFile(args.Base)
	if err != nil {
		log.Fatal().Err(err).Msg("reading dataset")
	}
	if len(dataset) == 0 {
		log.Fatal().Str("file", args.Base).Msg("dataset is empty")
	}

	queries, err := fvecs.ReadFile(args.Queries)
	if err != nil {
		log.Fatal().Err(err).Msg("reading queries")
	}
	if args.QueryIndex < 0 || args.QueryIndex >= len(queries) {
		log.Fatal().Int("query_index", args.QueryIndex).Int("num_queries", len(queries)).Msg("query index out of range")
	}
	query := queries[args.QueryIndex]

	log.Info().Int("points", len(dataset)).Int("dim", len(dataset[0])).Msg("loaded dataset")

	// 2. configure the LSH
	cfg.resolveDimension(len(dataset[0]))

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	knn, err := anns.NewLSHBased(&cfg.LSH, anns.WithSeed(seed), anns.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("creating lsh")
	}

	// 3. index every point of the dataset
	index, err := knn.Build(dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("building index")
	}

	// 4. query the index directly
	candidates, err := knn.Query(query, index)
	if err != nil {
		log.Fatal().Err(err).Msg("querying index")
	}

	// 5. report the candidates
	fmt.Printf("Number of candidates (LSH %v) = %d\n", cfg.LSH.String(), candidates.Len())
	for i, id := range candidates.IDs() {
		dist, err := anns.Distance(query, dataset[id])
		if err != nil {
			log.Fatal().Err(err).Int("id", id).Msg("candidate distance")
		}
		fmt.Printf("   Euclidean distance between query and candidate %d (id %d) = %v\n", i+1, id, dist)
	}

	// 6. exact nearest neighbors, to judge how close the candidates are
	exact, err := anns.KNearest(query, dataset, args.Neighbors)
	if err != nil {
		log.Fatal().Err(err).Msg("exact search")
	}

	fmt.Printf("Exact %d nearest neighbors\n", args.Neighbors)
	for i, n := range exact {
		fmt.Printf("   Euclidean distance between query and neighbor %d (id %d) = %v\n", i+1, n.Index, n.Distance)
	}
	fmt.Printf("Recall of LSH candidates = %v\n", anns.Recall(candidates.IDs(), exact))

	if !args.DETLSH {
		return
	}

	// 7. DE-Tree range query over the dynamically encoded projections
	detlsh, err := anns.BuildDETLSH(rand.New(rand.NewSource(seed)), knn.Family, dataset, cfg.DETLSH)
	if err != nil {
		log.Fatal().Err(err).Msg("building DET-LSH index")
	}

	ids, err := detlsh.RangeQuery(query, args.Radius)
	if err != nil {
		log.Fatal().Err(err).Msg("DET-LSH range query")
	}

	fmt.Printf("Number of candidates (DET-LSH, radius %v) = %d\n", args.Radius, len(ids))
	fmt.Printf("Recall of DET-LSH candidates = %v\n", anns.Recall(ids, exact))
}
