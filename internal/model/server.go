package model

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/freshness-api/internal/features"
)

// Model is the opaque scoring function: tensor in, raw outputs out.
type Model interface {
	Infer(t *features.Tensor) ([]float32, error)
}

// ErrUnavailable is returned by every inference call when the model could
// not be loaded at startup.
var ErrUnavailable = errors.New("model unavailable")

type Options struct {
	Path           string
	MetadataPath   string
	RuntimeLibrary string
	IntraOpThreads int
	ImageSize      int
}

// Session owns one ONNX Runtime session. Run is safe for concurrent use:
// tensors are allocated per call, nothing in Session is written after Load.
type Session struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
	Path     string
}

var envMu sync.Mutex

func initEnvironment(runtimeLibrary string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if runtimeLibrary != "" {
		ort.SetSharedLibraryPath(runtimeLibrary)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// Load opens the model once; the returned session is shared read-only by all requests.
func Load(opts Options) (*Session, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = features.DefaultSize
	}

	if err := initEnvironment(opts.RuntimeLibrary); err != nil {
		return nil, err
	}

	var metadata *Metadata
	var err error
	if opts.MetadataPath != "" {
		metadata, err = loadMetadata(opts.MetadataPath)
	} else {
		metadata, err = introspect(opts.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := metadata.validate(features.Channels, opts.ImageSize); err != nil {
		return nil, err
	}

	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessionOptions.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.Path,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:  session,
		Metadata: *metadata,
		Path:     opts.Path,
	}, nil
}

func introspect(path string) (*Metadata, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs/outputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs or outputs", path)
	}

	return &Metadata{
		InputName:   inputs[0].Name,
		OutputName:  outputs[0].Name,
		InputShape:  []int64(inputs[0].Dimensions),
		OutputShape: []int64(outputs[0].Dimensions),
	}, nil
}

// Infer runs the model on one tensor and returns the first output's values.
func (s *Session) Infer(t *features.Tensor) ([]float32, error) {
	input, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(s.Metadata.OutputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := output.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}

// unavailable stands in for a model that failed to load.
type unavailable struct {
	cause error
}

// Unavailable returns a model whose every Infer call fails with ErrUnavailable.
func Unavailable(cause error) Model {
	return unavailable{cause: cause}
}

func (u unavailable) Infer(*features.Tensor) ([]float32, error) {
	if u.cause != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
	}
	return nil, ErrUnavailable
}

// IOInfo is a printable summary of one model input or output.
type IOInfo struct {
	Name       string
	Dimensions []int64
	DataType   string
}

// Inspect lists a model's inputs and outputs without creating a session.
func Inspect(path, runtimeLibrary string) (inputs, outputs []IOInfo, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("model file: %w", err)
	}
	if err := initEnvironment(runtimeLibrary); err != nil {
		return nil, nil, err
	}
	in, out, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read model inputs/outputs: %w", err)
	}
	convert := func(infos []ort.InputOutputInfo) []IOInfo {
		res := make([]IOInfo, 0, len(infos))
		for _, info := range infos {
			res = append(res, IOInfo{
				Name:       info.Name,
				Dimensions: []int64(info.Dimensions),
				DataType:   fmt.Sprint(info.DataType),
			})
		}
		return res
	}
	return convert(in), convert(out), nil
}

// IsAvailable reports whether m is a loaded model rather than the stand-in
// returned by Unavailable.
func IsAvailable(m Model) bool {
	if m == nil {
		return false
	}
	_, down := m.(unavailable)
	return !down
}
