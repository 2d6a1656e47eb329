package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Search queries the programmes index.
type Search struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewSearch(client *elasticsearch.Client, index string, size int) *Search {
	if size <= 0 {
		size = 25
	}
	return &Search{client: client, index: index, size: size}
}

// buildQuery matches text against title, school and degree type and keeps
// only programmes of institution.
func buildQuery(institution, text string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":     text,
					"fields":    []string{"title^3", "school^2", "degreeType"},
					"type":      "best_fields",
					"fuzziness": "AUTO",
				},
			},
		},
	}
	if institution != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{"institution": institution},
			},
		}
	}
	return map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Program `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Search) SearchPrograms(ctx context.Context, institution, text string) ([]models.Program, error) {
	body, err := json.Marshal(buildQuery(institution, text))
	if err != nil {
		return nil, err
	}

	size := s.size
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, errors.NewUpstreamUnavailableError("elasticsearch", fmt.Errorf("%s: %s", res.Status(), msg))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	programs := make([]models.Program, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		programs = append(programs, hit.Source)
	}
	return programs, nil
}
