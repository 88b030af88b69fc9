// Package dto 提供规则表查询响应
package dto

import (
	"sort"

	"tattoo-ai-api/internal/workflow/catalog"
)

// CatalogResponse 当前规则表概览
type CatalogResponse struct {
	Version    string             `json:"version"`
	Styles     []string           `json:"styles"`
	Backends   []*catalog.Backend `json:"backends"`
	BodyZones  []string           `json:"body_zones"`
	Techniques []string           `json:"techniques"`
	Palettes   []string           `json:"palettes"`
}

func ToCatalogResponse(t *catalog.Tables) *CatalogResponse {
	resp := &CatalogResponse{
		Version:    t.Version,
		Styles:     t.StyleNames(),
		Backends:   make([]*catalog.Backend, 0, len(t.Backends)),
		BodyZones:  t.BodyZones,
		Techniques: keys(t.Techniques),
		Palettes:   keys(t.Palettes),
	}
	for i := range t.Backends {
		resp.Backends = append(resp.Backends, &t.Backends[i])
	}
	return resp
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
