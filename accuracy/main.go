package main

import (
	"encoding/json"
	"math/rand"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/sachaservan/annlsh/anns"
)

// Result holds the mean and standard deviation of every per-query metric
type Result struct {
	AvgRecallPlanted    float64 `json:"avg_recall_planted"`
	StdRecallPlanted    float64 `json:"std_recall_planted"`
	AvgRecallExact      float64 `json:"avg_recall_exact"`
	StdRecallExact      float64 `json:"std_recall_exact"`
	AvgRecallBest       float64 `json:"avg_recall_best"`
	StdRecallBest       float64 `json:"std_recall_best"`
	AvgRecallMajority   float64 `json:"avg_recall_majority"`
	StdRecallMajority   float64 `json:"std_recall_majority"`
	AvgCandidates       float64 `json:"avg_candidates"`
	StdCandidates       float64 `json:"std_candidates"`
	AvgDistanceBest     float64 `json:"avg_dist_best"`
	StdDistanceBest     float64 `json:"std_dist_best"`
	EmptyQueryFraction  float64 `json:"empty_query_fraction"`
	MaxBucketSizeTable0 int     `json:"max_bucket_size_table0"`
}

// Experiment contains all the parameters used in conducting a recall
// experiment measuring the percentage of NN returned by LSH.
// Experiment structs are saved to a json file for further analysis.
type Experiment struct {
	Results           *Result `json:"results"`
	NumValues         int     `json:"num_values"`
	NumFeatures       int     `json:"num_features"`
	DataValueRangeMin float64 `json:"data_min"`
	DataValueRangeMax float64 `json:"data_max"`
	NumQueries        int     `json:"num_queries"`
	NumNNPerQuery     int     `json:"num_nn_per_query"`
	MaxDistanceToNN   float64 `json:"max_distance_to_nn"`
	NumTables         int     `json:"num_tables"`
	NumProjections    int     `json:"num_projections"`
	ProjectionWidth   float64 `json:"projection_width"`
}

func compare(
	knn *anns.LSHBasedKNN,
	index *anns.Index,
	queries [][]float64,
	planted [][]int,
	numNN int,
	approximationFactor float64,
	maxDistanceToNN float64) (*Result, error) {

	result := &Result{}

	recallPlanted := make([]float64, 0, len(queries))
	recallExact := make([]float64, 0, len(queries))
	recallBest := make([]float64, 0, len(queries))
	recallMajority := make([]float64, 0, len(queries))
	numCandidates := make([]float64, 0, len(queries))
	distanceBest := make([]float64, 0, len(queries))
	empty := 0

	for n, query := range queries {

		// query the LSH data structure and get back a set of candidate points
		candidates, err := knn.Query(query, index)
		if err != nil {
			return nil, err
		}
		numCandidates = append(numCandidates, float64(candidates.Len()))

		found := candidates.IDs()
		truth := make([]anns.Neighbor, len(planted[n]))
		for i, id := range planted[n] {
			truth[i] = anns.Neighbor{Index: id}
		}
		recallPlanted = append(recallPlanted, anns.Recall(found, truth))

		exact, err := anns.KNearest(query, index.Data, numNN)
		if err != nil {
			return nil, err
		}
		recallExact = append(recallExact, anns.Recall(found, exact))

		if candidates.Len() == 0 {
			empty++
			recallBest = append(recallBest, 0)
			recallMajority = append(recallMajority, 0)
			continue
		}

		// the best candidate counts if it is a c-approximate nearest neighbor
		best, err := anns.RerankCandidates(query, candidates, 1)
		if err != nil {
			return nil, err
		}
		distanceBest = append(distanceBest, best[0].Distance)
		recallBest = append(recallBest, hit(best[0].Distance <= approximationFactor*maxDistanceToNN))

		majority, err := knn.GetMajorityCandidate(query, index)
		if err != nil {
			return nil, err
		}
		dist, err := anns.Distance(query, index.Data[majority])
		if err != nil {
			return nil, err
		}
		recallMajority = append(recallMajority, hit(dist <= approximationFactor*maxDistanceToNN))
	}

	// MeanStdDev of an empty sample is NaN, which json cannot encode
	if len(queries) > 0 {
		result.AvgRecallPlanted, result.StdRecallPlanted = stat.MeanStdDev(recallPlanted, nil)
		result.AvgRecallExact, result.StdRecallExact = stat.MeanStdDev(recallExact, nil)
		result.AvgRecallBest, result.StdRecallBest = stat.MeanStdDev(recallBest, nil)
		result.AvgRecallMajority, result.StdRecallMajority = stat.MeanStdDev(recallMajority, nil)
		result.AvgCandidates, result.StdCandidates = stat.MeanStdDev(numCandidates, nil)
		result.EmptyQueryFraction = float64(empty) / float64(len(queries))
	}
	if len(distanceBest) > 0 {
		result.AvgDistanceBest, result.StdDistanceBest = stat.MeanStdDev(distanceBest, nil)
	}
	result.MaxBucketSizeTable0 = index.GetTableMaxBucketSize()[0]

	return result, nil
}

func hit(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func main() {
	var args struct {
		SaveFileName        string  `default:"results.json"`
		DatasetSize         int     `default:"10000"`
		NumFeatures         int     `default:"100"`
		DataMax             float64 `default:"50"`
		DataMin             float64 `default:"-50"`
		NumQueries          int     `default:"200"`
		NumProjections      int     `default:"10"`
		ApproximationFactor float64 `default:"2"`
		NumNN               int     `default:"1"`
		MaxDistanceToNN     float64 `default:"100"`
		ProjectionWidth     float64 `default:"100"`
		NumTables           []int
		Seed                int64 `default:"1"`
		Verbose             bool
	}

	arg.MustParse(&args)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if args.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if args.NumNN <= 0 {
		log.Fatal().Int("num_nn", args.NumNN).Msg("num nn must be positive")
	}

	if len(args.NumTables) == 0 {
		args.NumTables = []int{10}
	}

	log.Info().Int("num_values", args.DatasetSize).Int("num_features", args.NumFeatures).Msg("generating data")

	rng := rand.New(rand.NewSource(args.Seed))
	values, queries, planted, err := anns.GenerateRandomDataWithPlantedQueries(
		rng,
		args.DatasetSize,
		args.NumFeatures,
		args.DataMin,         // min value
		args.DataMax,         // max value
		args.NumQueries,      // num queries
		args.NumNN,           // num NN per query
		args.MaxDistanceToNN, // max (Euclidean) distance to a neighbor
	)
	if err != nil {
		log.Fatal().Err(err).Msg("generating data")
	}

	allExperiments := make([]*Experiment, len(args.NumTables))

	var g errgroup.Group

	for i, numTables := range args.NumTables {
		i, numTables := i, numTables
		g.Go(func() error {
			params := &anns.LSHParams{
				NumFeatures:     args.NumFeatures,
				NumTables:       numTables,
				NumProjections:  args.NumProjections,
				ProjectionWidth: args.ProjectionWidth,
			}

			logger := log.With().Int("L", numTables).Int("K", args.NumProjections).Logger()

			knn, err := anns.NewLSHBased(params, anns.WithSeed(args.Seed+int64(i)), anns.WithLogger(logger))
			if err != nil {
				return err
			}

			index, err := knn.Build(values)
			if err != nil {
				return err
			}

			result, err := compare(knn, index, queries, planted, args.NumNN, args.ApproximationFactor, args.MaxDistanceToNN)
			if err != nil {
				return err
			}

			allExperiments[i] = &Experiment{
				Results:           result,
				NumValues:         len(values),
				NumFeatures:       args.NumFeatures,
				DataValueRangeMin: args.DataMin,
				DataValueRangeMax: args.DataMax,
				NumQueries:        args.NumQueries,
				NumNNPerQuery:     args.NumNN,
				MaxDistanceToNN:   args.MaxDistanceToNN,
				NumTables:         numTables,
				NumProjections:    args.NumProjections,
				ProjectionWidth:   args.ProjectionWidth,
			}

			logger.Info().
				Float64("recall_planted", result.AvgRecallPlanted).
				Float64("recall_exact", result.AvgRecallExact).
				Float64("recall_best", result.AvgRecallBest).
				Float64("recall_majority", result.AvgRecallMajority).
				Float64("avg_candidates", result.AvgCandidates).
				Msg("experiment done")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("experiment failed")
	}

	file, err := json.MarshalIndent(allExperiments, "", " ")
	if err != nil {
		log.Fatal().Err(err).Msg("encoding results")
	}

	if err := os.WriteFile(args.SaveFileName, file, 0644); err != nil {
		log.Fatal().Err(err).Msg("saving results")
	}

	log.Info().Str("file", args.SaveFileName).Msg("results saved")
}
