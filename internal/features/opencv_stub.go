//go:build !opencv

package features

func newOpenCVExtractor(int) (Extractor, error) {
	return nil, ErrBackendUnavailable
}
