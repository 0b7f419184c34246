package features

// Channels is the number of fused feature planes: R, G, B, H, S, V, edge intensity.
const Channels = 7

// ChannelNames lists the planes in tensor order.
var ChannelNames = [Channels]string{"R", "G", "B", "H", "S", "V", "EdgeIntensity"}

// Tensor is a float32 NCHW tensor with a batch dimension of 1.
type Tensor struct {
	Data  []float32
	Shape []int64
}

func newTensor(size int) *Tensor {
	return &Tensor{
		Data:  make([]float32, Channels*size*size),
		Shape: []int64{1, Channels, int64(size), int64(size)},
	}
}

// Channel returns the plane at index c. The slice aliases the tensor data.
func (t *Tensor) Channel(c int) []float32 {
	plane := int(t.Shape[2] * t.Shape[3])
	return t.Data[c*plane : (c+1)*plane]
}

// Size returns the spatial edge length.
func (t *Tensor) Size() int {
	return int(t.Shape[3])
}
