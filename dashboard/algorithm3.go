package dashboard

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ambiyansyah-risyal/lintas"
)

const algorithm3Path = "/algorithm3"

// AlgorithmResult is one risk assessment produced by an algorithm run.
type AlgorithmResult struct {
	Timestamp string `json:"timestamp"`
	Region    string `json:"region"`
	RiskLevel string `json:"risk_level"`
	Message   string `json:"message"`
	ConfigID  int    `json:"config_id"`
}

// AlgorithmParams identifies a trained configuration.
type AlgorithmParams struct {
	Algorithm    string
	LearningRate float64
	MaxDepth     *int
	MaxEpochs    *int
	Region       string
}

func (p AlgorithmParams) values() url.Values {
	v := url.Values{}
	v.Set("algorithm", p.Algorithm)
	v.Set("learning_rate", strconv.FormatFloat(p.LearningRate, 'f', -1, 64))
	setIntPtr(v, "max_depth", p.MaxDepth)
	setIntPtr(v, "max_epochs", p.MaxEpochs)
	setIfNotEmpty(v, "region", p.Region)
	return v
}

// AlgorithmQuery selects results of one configuration.
type AlgorithmQuery struct {
	AlgorithmParams
	PageParams
}

// AlgorithmCSVQuery selects the results exported as CSV.
type AlgorithmCSVQuery struct {
	AlgorithmParams
	Filename string
	// Localize translates column names; nil means true.
	Localize *bool
}

// Algorithm3Service reads the results of the parameterised algorithms.
type Algorithm3Service struct {
	client *lintas.Client
}

// ResultsPage returns one page of results.
func (s *Algorithm3Service) ResultsPage(ctx context.Context, q AlgorithmQuery, opts ...lintas.RequestOption) (*Page[AlgorithmResult], error) {
	v := q.AlgorithmParams.values()
	q.PageParams.apply(v)

	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("get-algorithm-results")),
		lintas.WithReturnRaw(),
	}, opts...)
	return lintas.As[*Page[AlgorithmResult]](s.client.Get(ctx, algorithm3Path+"/results", v, opts...))
}

// Results returns every result of the configuration, unpaginated.
func (s *Algorithm3Service) Results(ctx context.Context, p AlgorithmParams, opts ...lintas.RequestOption) ([]AlgorithmResult, error) {
	page, err := s.ResultsPage(ctx, AlgorithmQuery{AlgorithmParams: p, PageParams: PageParams{GetAll: true}}, opts...)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// DownloadCSV exports the results of the configuration.
func (s *Algorithm3Service) DownloadCSV(ctx context.Context, q AlgorithmCSVQuery, opts ...lintas.RequestOption) (*lintas.Download, error) {
	v := q.AlgorithmParams.values()
	setIfNotEmpty(v, "filename", q.Filename)
	setLocalize(v, q.Localize)

	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("download-csv-results")),
		lintas.WithFilename(csvName(q.Filename, "algorithm_results")),
	}, opts...)
	return s.client.Download(ctx, algorithm3Path+"/results/download-csv", v, opts...)
}
