package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs served by the server.
const (
	IndexStatsURI = "docqa://index/stats"
	DocumentsURI  = "docqa://documents"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "index_stats",
		URI:         IndexStatsURI,
		Description: "Size and embedding model of the current index",
		MIMEType:    "application/json",
	}, s.readIndexStats)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "documents",
		URI:         DocumentsURI,
		Description: "PDF documents in the docs directory",
		MIMEType:    "application/json",
	}, s.readDocuments)
}

func (s *Server) readIndexStats(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(IndexStatsURI, out)
}

func (s *Server) readDocuments(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.listDocuments()
	if err != nil {
		return nil, err
	}
	return jsonResource(DocumentsURI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
