package httpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/models"
)

func shapedDNA() *models.DNA {
	return &models.DNA{
		Identity: models.IdentityGene{
			UserAgent: "TestAgent/1.0",
			Language:  "en-US",
		},
		Network: models.NetworkGene{
			Headers: map[string]string{
				"Accept":          "text/html",
				"Accept-Language": "en-GB",
				"X-Custom":        "yes",
			},
			HeaderOrder:    []string{"Accept", "Accept-Language"},
			HTTPVersion:    "2",
			AcceptEncoding: "gzip",
		},
	}
}

func TestShapeRequestAppliesDnaHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)

	ShapeRequest(req, shapedDNA())

	assert.Equal(t, "text/html", req.Header.Get("Accept"))
	assert.Equal(t, "yes", req.Header.Get("X-Custom"))
	// Identity fields override the raw header map
	assert.Equal(t, "TestAgent/1.0", req.Header.Get("User-Agent"))
	assert.Equal(t, "en-US", req.Header.Get("Accept-Language"))
	assert.Equal(t, "gzip", req.Header.Get("Accept-Encoding"))
}

func TestOrderedHeaderListHonorsDeclaredOrder(t *testing.T) {
	dna := shapedDNA()
	req, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	ShapeRequest(req, dna)

	ordered := OrderedHeaderList(req, dna)
	require.GreaterOrEqual(t, len(ordered), 2)
	assert.Contains(t, ordered[0], "Accept:")
	assert.Contains(t, ordered[1], "Accept-Language:")
}

func TestNewShapedClientDefaults(t *testing.T) {
	config := common.DefaultConfig()
	client, err := NewShapedClient(config, shapedDNA())
	require.NoError(t, err)

	assert.NotNil(t, client.Jar)
	assert.Equal(t, config.RequestTimeout(), client.Timeout)
}

func TestNewShapedClientRejectsUnknownProxyType(t *testing.T) {
	config := common.DefaultConfig()
	config.Proxy.Enabled = true
	config.Proxy.Type = "http"
	config.Proxy.Host = "127.0.0.1"
	config.Proxy.Port = 1080

	_, err := NewShapedClient(config, shapedDNA())
	assert.Error(t, err)
}
