package ml

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

const defaultSeqLen = 128

// ONNXClassifier runs a local transformer sequence classifier.
type ONNXClassifier struct {
	session   *ort.AdvancedSession
	inputIDs  *ort.Tensor[int64]
	attnMask  *ort.Tensor[int64]
	logits    *ort.Tensor[float32]
	tokenizer *WordPieceTokenizer
	seqLen    int
	mu        sync.Mutex
}

// LoadONNX loads model.onnx and vocab.txt from dir.
func LoadONNX(dir, sharedLib string, seqLen int) (*ONNXClassifier, error) {
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}

	modelPath := filepath.Join(dir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	tok, err := LoadWordPieceTokenizer(filepath.Join(dir, "vocab.txt"))
	if err != nil {
		return nil, err
	}

	if !ort.IsInitialized() {
		if lib := resolveSharedLibraryPath(sharedLib); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("init onnxruntime: %w", err)
		}
	}

	shape := ort.NewShape(1, int64(seqLen))
	ids, err := ort.NewEmptyTensor[int64](shape)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	mask, err := ort.NewEmptyTensor[int64](shape)
	if err != nil {
		ids.Destroy()
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		ids.Destroy()
		mask.Destroy()
		return nil, fmt.Errorf("logits tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{ids, mask},
		[]ort.Value{out},
		nil,
	)
	if err != nil {
		ids.Destroy()
		mask.Destroy()
		out.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXClassifier{
		session:   session,
		inputIDs:  ids,
		attnMask:  mask,
		logits:    out,
		tokenizer: tok,
		seqLen:    seqLen,
	}, nil
}

// Predict tokenizes text and runs the model. The session's tensors are
// shared, so runs are serialized.
func (c *ONNXClassifier) Predict(ctx context.Context, text string) domain.MLSignal {
	if err := ctx.Err(); err != nil {
		return domain.UnknownMLSignal()
	}

	ids, mask := c.tokenizer.Encode(text, c.seqLen)

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputIDs.GetData(), ids)
	copy(c.attnMask.GetData(), mask)
	if err := c.session.Run(); err != nil {
		slog.Warn("ml inference failed", "error", err)
		return domain.UnknownMLSignal()
	}

	logits := make([]float32, len(c.logits.GetData()))
	copy(logits, c.logits.GetData())
	return FromLogits(logits)
}

// Available reports true once the model is loaded.
func (c *ONNXClassifier) Available() bool { return true }

// Close releases the session and tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Destroy()
	}
	c.inputIDs.Destroy()
	c.attnMask.Destroy()
	c.logits.Destroy()
	return nil
}

func resolveSharedLibraryPath(configured string) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); env != "" {
		return env
	}

	name := "libonnxruntime.so"
	switch runtime.GOOS {
	case "darwin":
		name = "libonnxruntime.dylib"
	case "windows":
		name = "onnxruntime.dll"
	}
	for _, dir := range []string{"/usr/local/lib", "/usr/lib", "/opt/onnxruntime/lib"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
