package cqt

import (
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sort"
	"sync"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

// windowBandwidths lists the equivalent noise bandwidth (in FFT bins) of each window
var windowBandwidths = map[windowing.Type]float64{
	windowing.Rectangular:    1.0,
	windowing.Hann:           1.50018310546875,
	windowing.Hamming:        1.3629455320350348,
	windowing.Blackman:       1.7269681554262326,
	windowing.BlackmanHarris: 2.0045975283585014,
	windowing.FlatTop:        2.7762255046484143,
	windowing.Triangular:     1.3331706523555851,
}

// WindowBandwidth returns the equivalent noise bandwidth of a window.
// Windows without a tabulated value are measured on 1000 points.
func WindowBandwidth(kind windowing.Type) float64 {
	if bw, ok := windowBandwidths[kind]; ok {
		return bw
	}

	const n = 1000
	w := windowing.Coefficients(kind, n)
	sum, sumSq := 0.0, 0.0
	for _, v := range w {
		sum += math.Abs(v)
		sumSq += v * v
	}
	return n * sumSq / (sum * sum)
}

// FilterBank is the frequency-domain constant-Q basis for one octave (or more).
// Each Build replaces the previous filters; Scale rescales them in place.
type FilterBank struct {
	binsPerOctave int
	q             float64
	norm          common.NormType
	window        windowing.Type

	freqs   []float64
	lengths []float64
	nFft    int
	proj    projector
}

// NewFilterBank creates an empty basis with Q = filterScale / (2^(1/bpo) - 1)
func NewFilterBank(binsPerOctave int, filterScale float64, norm common.NormType, window windowing.Type) *FilterBank {
	return &FilterBank{
		binsPerOctave: binsPerOctave,
		q:             filterScale / (math.Pow(2, 1/float64(binsPerOctave)) - 1),
		norm:          norm,
		window:        window,
	}
}

// Q returns the quality factor shared by all filters
func (fb *FilterBank) Q() float64 {
	return fb.q
}

// FFTLength returns the frame length the filters were transformed with
func (fb *FilterBank) FFTLength() int {
	return fb.nFft
}

// NumBins returns the number of filters built by the last Build
func (fb *FilterBank) NumBins() int {
	return len(fb.freqs)
}

// Sparse reports whether the filters are held in CSR form
func (fb *FilterBank) Sparse() bool {
	return fb.proj.kind == sparseProjection
}

// Lengths returns the fractional filter lengths of the last Build
func (fb *FilterBank) Lengths() []float64 {
	out := make([]float64, len(fb.lengths))
	copy(out, fb.lengths)
	return out
}

// Frequencies returns the centre frequencies fMin * 2^(i/bpo).
// The top filter's pass-band must stay below Nyquist.
func (fb *FilterBank) Frequencies(rate int, fMin float64, nBins int) ([]float64, error) {
	freqs := centerFrequencies(fMin, nBins, fb.binsPerOctave)

	if len(freqs) > 0 {
		top := freqs[len(freqs)-1] * (1 + 0.5*WindowBandwidth(fb.window)/fb.q)
		if top > float64(rate)/2 {
			return nil, fmt.Errorf("%w: %.1f Hz > %.1f Hz", ErrBeyondNyquist, top, float64(rate)/2)
		}
	}
	return freqs, nil
}

func centerFrequencies(fMin float64, nBins, binsPerOctave int) []float64 {
	freqs := make([]float64, nBins)
	for i := range freqs {
		freqs[i] = fMin * math.Pow(2, float64(i)/float64(binsPerOctave))
	}
	return freqs
}

// filterLengths returns Q*rate/f for every frequency; non-increasing in f
func filterLengths(q float64, rate int, freqs []float64) []float64 {
	lengths := make([]float64, len(freqs))
	for i, f := range freqs {
		lengths[i] = q * float64(rate) / f
	}
	return lengths
}

// Build constructs nBins filters starting at fMin for the given sample rate.
// hop > 0 enlarges the FFT to at least 2^(1+ceil(log2 hop)).
// sparsity > 0 zeroes the smallest coefficients of each filter holding that
// fraction of its L1 energy and switches the projection to CSR.
func (fb *FilterBank) Build(rate int, fMin float64, nBins int, sparsity float64, hop int) error {
	if nBins <= 0 {
		return fmt.Errorf("number of bins must be positive, got %d", nBins)
	}
	if sparsity < 0 || sparsity >= 1 {
		return fmt.Errorf("sparsity must be in [0, 1), got %g", sparsity)
	}

	freqs, err := fb.Frequencies(rate, fMin, nBins)
	if err != nil {
		return err
	}
	lengths := filterLengths(fb.q, rate, freqs)

	nFft := 1 << uint(math.Ceil(math.Log2(lengths[0])))
	if hop > 0 {
		nFft = max(nFft, 1<<uint(1+math.Ceil(math.Log2(float64(hop)))))
	}
	nCols := nFft/2 + 1

	filters := make([][]complex128, nBins)
	errs := make([]error, nBins)

	jobs := make(chan int, nBins)
	var wg sync.WaitGroup
	for range min(runtime.NumCPU(), nBins) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				filt, err := fb.buildFilter(freqs[i], lengths[i], rate, nFft)
				if err != nil {
					errs[i] = err
					continue
				}
				if sparsity > 0 {
					sparsifyRow(filt, sparsity)
				}
				filters[i] = filt
			}
		}()
	}
	for i := range nBins {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("filter %d (%.2f Hz): %w", i, freqs[i], err)
		}
	}

	// flatten once; the 2-D buffer is dropped here
	flat := make([]complex128, nBins*nCols)
	for i, filt := range filters {
		copy(flat[i*nCols:(i+1)*nCols], filt)
	}

	if sparsity > 0 {
		fb.proj = newSparseProjector(newCSR(flat, nBins, nCols))
	} else {
		fb.proj = newDenseProjector(&denseBank{rows: nBins, cols: nCols, data: flat})
	}

	fb.freqs = freqs
	fb.lengths = lengths
	fb.nFft = nFft
	return nil
}

// buildFilter returns the nFft/2+1 non-negative frequency bins of one
// windowed, normalized complex exponential centred in an nFft frame.
func (fb *FilterBank) buildFilter(freq, length float64, rate, nFft int) ([]complex128, error) {
	filt := make([]complex128, nFft)

	offset := max((nFft-int(length)-1)/2, 0)
	written := 0
	for j := 0; float64(j) <= length && j+offset < nFft; j++ {
		t := math.Floor(float64(j)-length/2) / float64(rate)
		filt[j+offset] = cmplx.Exp(complex(0, 2*math.Pi*freq*t))
		written++
	}

	buf := filt[offset:]
	size := min(int(math.Ceil(length)), len(buf))

	if fb.window != windowing.Rectangular {
		// one extra point for even lengths keeps the taper symmetric
		winSize := min(size+1-int(length)%2, len(buf))
		if err := windowing.New(fb.window, winSize).ApplyComplexInPlace(buf[:winSize]); err != nil {
			return nil, err
		}
	}

	// an integral length writes one tap past size; it is scaled with the rest
	scaled := buf[:max(size, written)]
	if err := normalizeFilter(scaled, size, fb.norm); err != nil {
		return nil, err
	}

	k := complex(length/float64(nFft), 0)
	for i := range scaled {
		scaled[i] *= k
	}

	spectrum := spectral.NewFFT().ComputeComplex(filt)
	return spectrum[:nFft/2+1], nil
}

// normalizeFilter divides taps by the norm of taps[:size]. Normalizing an
// already normalized filter leaves it unchanged.
func normalizeFilter(taps []complex128, size int, kind common.NormType) error {
	norm := common.NormComplex(taps[:size], kind)
	if norm == 0 {
		return fmt.Errorf("filter norm is zero")
	}

	k := complex(1/norm, 0)
	for i := range taps {
		taps[i] *= k
	}
	return nil
}

// sparsifyRow zeroes the smallest magnitudes of filt whose sum stays below
// quantile of the row's L1 norm.
func sparsifyRow(filt []complex128, quantile float64) {
	mags := make([]float64, len(filt))
	for i, v := range filt {
		mags[i] = cmplx.Abs(v)
	}

	sorted := make([]float64, len(mags))
	copy(sorted, mags)
	sort.Float64s(sorted)

	l1 := 0.0
	for _, m := range sorted {
		l1 += m
	}

	threshold := quantile * l1
	for i := len(sorted) - 1; i >= 0; i-- {
		l1 -= sorted[i]
		if l1 < threshold {
			threshold = sorted[i]
			break
		}
	}

	for i, m := range mags {
		if m < threshold {
			filt[i] = 0
		}
	}
}

// Scale multiplies every filter coefficient by k
func (fb *FilterBank) Scale(k float64) {
	fb.proj = fb.proj.scaled(k)
}

// Project multiplies the filters against an STFT, returning nBins x nFrames
func (fb *FilterBank) Project(stft *spectral.STFTResult) ([][]complex128, error) {
	if fb.proj.kind == noProjection {
		return nil, fmt.Errorf("filter bank has not been built")
	}
	if stft.NumBins != fb.nFft/2+1 {
		return nil, fmt.Errorf("stft has %d bins, filters expect %d", stft.NumBins, fb.nFft/2+1)
	}
	return fb.proj.project(stft.Frames, stft.NumBins), nil
}
