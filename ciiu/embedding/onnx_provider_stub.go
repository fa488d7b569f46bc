//go:build !onnx
// +build !onnx

package embedding

func newONNXProvider(opts Options) (Provider, error) { return nil, ErrONNXNotAvailable }

// ListONNXProviders is a stub when the package is built without ONNX support.
func ListONNXProviders() ([]string, error) { return nil, ErrONNXNotAvailable }
