package ml

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

func TestFromLogits(t *testing.T) {
	sig := FromLogits([]float32{2, 0})
	assert.Equal(t, domain.MLLabelSafe, sig.Label)
	assert.InDelta(t, 0.8808, sig.Confidence, 0.0001)

	sig = FromLogits([]float32{-1, 3})
	assert.Equal(t, domain.MLLabelScam, sig.Label)
	assert.InDelta(t, 0.9820, sig.Confidence, 0.0001)

	sig = FromLogits([]float32{0, 0})
	assert.Equal(t, domain.MLLabelSafe, sig.Label, "ties resolve to the first class")
	assert.InDelta(t, 0.5, sig.Confidence, 1e-9)

	assert.Equal(t, domain.UnknownMLSignal(), FromLogits(nil))
}

func TestSoftmaxLargeLogits(t *testing.T) {
	probs := softmax([]float32{1000, 999})
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
	assert.False(t, math.IsNaN(probs[0]))
}

func TestUnavailable(t *testing.T) {
	var c Classifier = Unavailable{}
	assert.False(t, c.Available())
	assert.Equal(t, domain.UnknownMLSignal(), c.Predict(context.Background(), "anything"))
}

func TestNewResolvesCapability(t *testing.T) {
	assert.IsType(t, Unavailable{}, New(domain.MLConfig{}))
	assert.IsType(t, &RemoteClassifier{}, New(domain.MLConfig{URL: "http://localhost:1"}))
	assert.IsType(t, Unavailable{}, New(domain.MLConfig{ModelDir: t.TempDir()}), "missing model degrades")
}

func testVocab() map[string]int64 {
	return map[string]int64{
		"[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3,
		"verify": 4, "your": 5, "account": 6, "now": 7, "!": 8, "acc": 9, "##ount": 10,
	}
}

func TestWordPieceEncode(t *testing.T) {
	tok := NewWordPieceTokenizer(testVocab())

	ids, mask := tok.Encode("Verify your ACCOUNT now!", 10)
	assert.Equal(t, []int64{2, 4, 5, 6, 7, 8, 3, 0, 0, 0}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 1, 0, 0, 0}, mask)

	ids, _ = tok.Encode("zzz", 4)
	assert.Equal(t, []int64{2, 1, 3, 0}, ids)
}

func TestWordPieceTruncates(t *testing.T) {
	tok := NewWordPieceTokenizer(testVocab())

	ids, mask := tok.Encode("verify your account now verify your account now", 5)
	require.Len(t, ids, 5)
	assert.Equal(t, int64(2), ids[0])
	assert.Equal(t, int64(3), ids[4])
	assert.Equal(t, []int64{1, 1, 1, 1, 1}, mask)

	ids, mask = tok.Encode("x", 1)
	assert.Nil(t, ids)
	assert.Nil(t, mask)
}

func TestLoadWordPieceTokenizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("[PAD]\n[UNK]\n[CLS]\n[SEP]\nhello\n"), 0o644))

	tok, err := LoadWordPieceTokenizer(path)
	require.NoError(t, err)
	ids, _ := tok.Encode("hello", 4)
	assert.Equal(t, []int64{2, 4, 3, 0}, ids)

	_, err = LoadWordPieceTokenizer(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestRemoteClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Text {
		case "label":
			_, _ = w.Write([]byte(`{"label":"scam","confidence":0.91}`))
		case "logits":
			_, _ = w.Write([]byte(`{"logits":[3,-1]}`))
		case "bad":
			_, _ = w.Write([]byte(`{"label":"maybe","confidence":0.5}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewRemote(srv.URL, time.Second)
	ctx := context.Background()

	assert.True(t, c.Available())
	assert.Equal(t, domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.91}, c.Predict(ctx, "label"))
	assert.Equal(t, domain.MLLabelSafe, c.Predict(ctx, "logits").Label)
	assert.Equal(t, domain.UnknownMLSignal(), c.Predict(ctx, "bad"))
	assert.Equal(t, domain.UnknownMLSignal(), c.Predict(ctx, "boom"))
}

func TestRemoteClassifierTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewRemote(srv.URL, 20*time.Millisecond)
	assert.Equal(t, domain.UnknownMLSignal(), c.Predict(context.Background(), "slow"))
}
