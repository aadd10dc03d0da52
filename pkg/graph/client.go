package graph

// GraphClient runs chunked graph extractions. It holds the chunking
// configuration and controls how many chunks are extracted concurrently.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	chunkEnabled       bool
	chunkSizeTokens    int
	chunkOverlapTokens int
	parallelChunks     int
	maxRetries         int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ChunkSizeTokens and ChunkOverlapTokens are measured in approximate tokens
// of four characters each. ParallelChunks controls how many chunks are sent
// to the extractor at the same time; with one, chunks are extracted strictly
// in order. MaxRetries is the number of attempts per chunk.
type NewGraphClientParams struct {
	ChunkEnabled       bool
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	ParallelChunks     int
	MaxRetries         int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		ChunkEnabled:       true,
//		ChunkSizeTokens:    4000,
//		ChunkOverlapTokens: 200,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	parallel := params.ParallelChunks
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	g := &GraphClient{
		chunkEnabled:       params.ChunkEnabled,
		chunkSizeTokens:    params.ChunkSizeTokens,
		chunkOverlapTokens: params.ChunkOverlapTokens,
		parallelChunks:     parallel,
		maxRetries:         maxRetries,
	}

	return g, nil
}

// Chunking returns the chunk settings of g.
func (g *GraphClient) Chunking() (enabled bool, sizeTokens, overlapTokens int) {
	return g.chunkEnabled, g.chunkSizeTokens, g.chunkOverlapTokens
}

// WithChunking returns a copy of g that uses the given chunk settings.
func (g *GraphClient) WithChunking(enabled bool, sizeTokens, overlapTokens int) *GraphClient {
	c := *g
	c.chunkEnabled = enabled
	c.chunkSizeTokens = sizeTokens
	c.chunkOverlapTokens = overlapTokens
	return &c
}

// WithParallelChunks returns a copy of g that extracts up to n chunks at once.
func (g *GraphClient) WithParallelChunks(n int) *GraphClient {
	c := *g
	c.parallelChunks = max(n, 1)
	return &c
}
