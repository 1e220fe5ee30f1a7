package dashboard

import (
	"context"
	"net/url"

	"github.com/ambiyansyah-risyal/lintas"
)

const algorithm1Path = "/algorithm1"

// PredictionResult is one TimeMixer prediction for a monitoring point.
type PredictionResult struct {
	Timestamp        string  `json:"timestamp"`
	PointID          string  `json:"point_id"`
	Region           string  `json:"region"`
	Temperature      float64 `json:"temperature"`
	Pressure         float64 `json:"pressure"`
	FlowRate         float64 `json:"flow_rate"`
	Level            float64 `json:"level"`
	GasType          string  `json:"gas_type"`
	GasConcentration float64 `json:"gas_concentration"`
}

// PredictionQuery filters TimeMixer results. Empty filters match everything.
type PredictionQuery struct {
	Region  string
	PointID string
	PageParams
}

func (q PredictionQuery) values() url.Values {
	v := url.Values{}
	setIfNotEmpty(v, "region", q.Region)
	setIfNotEmpty(v, "point_id", q.PointID)
	q.PageParams.apply(v)
	return v
}

// PredictionCSVQuery selects the results exported as CSV.
type PredictionCSVQuery struct {
	Region  string
	PointID string
	// Filename is the file name prefix the server uses.
	Filename string
	// Localize translates column names; nil means true.
	Localize *bool
}

// Algorithm1Service reads TimeMixer predictions.
type Algorithm1Service struct {
	client *lintas.Client
}

// TimeMixerPage returns one page of predictions.
func (s *Algorithm1Service) TimeMixerPage(ctx context.Context, q PredictionQuery, opts ...lintas.RequestOption) (*Page[PredictionResult], error) {
	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("get-TimeMixer-results")),
		lintas.WithReturnRaw(),
	}, opts...)
	return lintas.As[*Page[PredictionResult]](s.client.Get(ctx, algorithm1Path+"/TimeMixer", q.values(), opts...))
}

// TimeMixerResults returns every prediction matching q, unpaginated.
func (s *Algorithm1Service) TimeMixerResults(ctx context.Context, q PredictionQuery, opts ...lintas.RequestOption) ([]PredictionResult, error) {
	q.GetAll = true
	page, err := s.TimeMixerPage(ctx, q, opts...)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// TimeMixerResultsByPointID returns every prediction of one monitoring point.
func (s *Algorithm1Service) TimeMixerResultsByPointID(ctx context.Context, pointID string) ([]PredictionResult, error) {
	return s.TimeMixerResults(ctx, PredictionQuery{PointID: pointID})
}

// TimeMixerResultsByRegion returns every prediction of one region.
func (s *Algorithm1Service) TimeMixerResultsByRegion(ctx context.Context, region string) ([]PredictionResult, error) {
	return s.TimeMixerResults(ctx, PredictionQuery{Region: region})
}

// DownloadCSV exports the predictions matching q.
func (s *Algorithm1Service) DownloadCSV(ctx context.Context, q PredictionCSVQuery, opts ...lintas.RequestOption) (*lintas.Download, error) {
	v := url.Values{}
	setIfNotEmpty(v, "region", q.Region)
	setIfNotEmpty(v, "point_id", q.PointID)
	setIfNotEmpty(v, "filename", q.Filename)
	setLocalize(v, q.Localize)

	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("download-TimeMixer-csv")),
		lintas.WithFilename(csvName(q.Filename, "timemixer_results")),
	}, opts...)
	return s.client.Download(ctx, algorithm1Path+"/TimeMixer/results/download-csv", v, opts...)
}

// PredictionChart fetches the rendered chart image of one point at one time.
func (s *Algorithm1Service) PredictionChart(ctx context.Context, pointID, timestamp string, opts ...lintas.RequestOption) (*lintas.Download, error) {
	opts = append([]lintas.RequestOption{
		lintas.WithRequestID(lintas.NewRequestID("get-prediction-chart")),
	}, opts...)
	v := url.Values{"point_id": {pointID}, "timestamp": {timestamp}}
	return s.client.Download(ctx, algorithm1Path+"/TimeMixer/prediction-chart", v, opts...)
}

func csvName(prefix, fallback string) string {
	if prefix == "" {
		prefix = fallback
	}
	return prefix + ".csv"
}
