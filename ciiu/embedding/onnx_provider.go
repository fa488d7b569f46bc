//go:build onnx
// +build onnx

package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/embedding/tokenizer"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxProvider runs a sentence-transformers model exported to ONNX. Models
// exporting last_hidden_state are mean pooled over the attention mask; models
// exporting a pooled [batch, dim] output are used as is.
type onnxProvider struct {
	opts        Options
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
	tok         tokenizer.Tokenizer
}

func newONNXProvider(opts Options) (Provider, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.MaxSeqLen <= 0 {
		opts.MaxSeqLen = 256
	}
	return &onnxProvider{opts: opts}, nil
}

func (p *onnxProvider) Dimensions() int { return p.opts.Dimensions }

func (p *onnxProvider) ensureSession() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return nil
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}
	ins, outs, err := ort.GetInputOutputInfo(p.opts.ModelPath)
	if err != nil {
		return fmt.Errorf("get IO info: %w", err)
	}
	var inputNames []string
	for _, ii := range ins {
		n := strings.ToLower(ii.Name)
		if strings.Contains(n, "input_ids") || strings.Contains(n, "attention_mask") || strings.Contains(n, "token_type") {
			inputNames = append(inputNames, ii.Name)
		}
	}
	if len(inputNames) == 0 {
		return fmt.Errorf("could not determine ONNX input names")
	}
	// Prefer a pooled sentence embedding when the export provides one
	var outputName string
	for _, oi := range outs {
		if oi.DataType != ort.TensorElementDataTypeFloat {
			continue
		}
		if strings.Contains(strings.ToLower(oi.Name), "sentence_embedding") {
			outputName = oi.Name
			break
		}
		if outputName == "" {
			outputName = oi.Name
		}
	}
	if outputName == "" {
		return fmt.Errorf("could not determine ONNX output name")
	}

	opts, err := p.sessionOptions()
	if err != nil {
		return err
	}
	s, err := ort.NewDynamicAdvancedSession(p.opts.ModelPath, inputNames, []string{outputName}, opts)
	if opts != nil {
		_ = opts.Destroy()
	}
	if err != nil {
		return fmt.Errorf("create onnx session: %w", err)
	}

	tok, err := tokenizer.Load(p.opts.ModelPath, p.opts.MaxSeqLen)
	if err != nil {
		_ = s.Destroy()
		return fmt.Errorf("initialize tokenizer: %w", err)
	}
	p.session = s
	p.inputNames = inputNames
	p.outputNames = []string{outputName}
	p.tok = tok
	return nil
}

// sessionOptions returns nil for the default CPU provider.
func (p *onnxProvider) sessionOptions() (*ort.SessionOptions, error) {
	ep := strings.ToLower(strings.TrimSpace(p.opts.ExecutionProvider))
	if ep == "" || ep == "cpu" {
		return nil, nil
	}
	o, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	_ = o.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)
	switch ep {
	case "cuda":
		if cu, e := ort.NewCUDAProviderOptions(); e == nil {
			_ = o.AppendExecutionProviderCUDA(cu)
			_ = cu.Destroy()
		}
	case "tensorrt":
		if trt, e := ort.NewTensorRTProviderOptions(); e == nil {
			_ = o.AppendExecutionProviderTensorRT(trt)
			_ = trt.Destroy()
		}
	case "coreml":
		_ = o.AppendExecutionProviderCoreMLV2(map[string]string{})
	case "dml":
		_ = o.AppendExecutionProviderDirectML(p.opts.DeviceID)
	default:
		_ = o.Destroy()
		return nil, fmt.Errorf("unsupported onnx execution provider %q", ep)
	}
	return o, nil
}

func (p *onnxProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if err := p.ensureSession(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	all := make([][]float32, 0, len(inputs))
	for i := 0; i < len(inputs); i += p.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(i+p.opts.BatchSize, len(inputs))
		vecs, err := p.embedChunk(inputs[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (p *onnxProvider) embedChunk(inputs []string) ([][]float32, error) {
	ids, masks, err := p.tok.Tokenize(inputs)
	if err != nil {
		return nil, err
	}
	batch := len(ids)
	if batch == 0 {
		return [][]float32{}, nil
	}
	seq := len(ids[0])
	flatIDs := make([]int64, batch*seq)
	flatMask := make([]int64, batch*seq)
	for i := 0; i < batch; i++ {
		copy(flatIDs[i*seq:(i+1)*seq], ids[i])
		copy(flatMask[i*seq:(i+1)*seq], masks[i])
	}
	shape := ort.NewShape(int64(batch), int64(seq))
	idsTensor, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, fmt.Errorf("ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, fmt.Errorf("mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, make([]int64, batch*seq))
	if err != nil {
		return nil, fmt.Errorf("token type tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inVals := make([]ort.Value, len(p.inputNames))
	for i, name := range p.inputNames {
		ln := strings.ToLower(name)
		switch {
		case strings.Contains(ln, "input_ids"):
			inVals[i] = idsTensor
		case strings.Contains(ln, "attention_mask"):
			inVals[i] = maskTensor
		default:
			inVals[i] = typeTensor
		}
	}
	outs := make([]ort.Value, 1)
	if err := p.session.Run(inVals, outs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer func() {
		if outs[0] != nil {
			outs[0].Destroy()
		}
	}()

	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type")
	}
	data := t.GetData()
	oshape := t.GetShape()
	switch len(oshape) {
	case 2:
		rows, cols := int(oshape[0]), int(oshape[1])
		vecs := make([][]float32, rows)
		for r := 0; r < rows; r++ {
			vecs[r] = AdjustToDims(data[r*cols:(r+1)*cols], p.opts.Dimensions)
		}
		return vecs, nil
	case 3:
		return meanPool(data, masks, int(oshape[0]), int(oshape[1]), int(oshape[2]), p.opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unexpected output rank %d", len(oshape))
	}
}

// meanPool averages token embeddings [batch, seq, hidden] over unmasked tokens.
func meanPool(data []float32, masks [][]int64, batch, seq, hidden, dims int) [][]float32 {
	vecs := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		sum := make([]float32, hidden)
		var n float32
		for s := 0; s < seq; s++ {
			if s < len(masks[b]) && masks[b][s] == 0 {
				continue
			}
			off := (b*seq + s) * hidden
			for h := 0; h < hidden; h++ {
				sum[h] += data[off+h]
			}
			n++
		}
		if n > 0 {
			for h := range sum {
				sum[h] /= n
			}
		}
		vecs[b] = AdjustToDims(sum, dims)
	}
	return vecs
}

// ListONNXProviders returns the execution providers this build can request.
func ListONNXProviders() ([]string, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}
	return []string{"cpu", "cuda", "tensorrt", "coreml", "dml"}, nil
}
