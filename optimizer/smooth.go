package optimizer

import (
	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// savitzkyGolayCoeffs returns the length-window convolution coefficients
// for the zeroth-derivative Savitzky-Golay filter of the given polynomial
// order, centered in the window. It is computed via the standard
// least-squares design: fit a degree-polyOrder polynomial to window
// consecutive integer abscissas and read off the row of (A^T A)^-1 A^T
// that reconstructs the centered sample.
//
// This is grounded on the *shape* of the teacher's smooth.Smoother
// abstraction (refine a sequence of estimates into a smoothed sequence)
// but is a fresh gonum-based derivation: no pack example ships a dedicated
// Savitzky-Golay filter library.
func savitzkyGolayCoeffs(window, polyOrder int) ([]float64, error) {
	half := window / 2
	a := mat.NewDense(window, polyOrder+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		p := 1.0
		for j := 0; j <= polyOrder; j++ {
			a.Set(i, j, p)
			p *= x
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var ataInv mat.Dense
	if err := ataInv.Inverse(&ata); err != nil {
		return nil, err
	}

	var pseudo mat.Dense
	pseudo.Mul(&ataInv, a.T())

	coeffs := make([]float64, window)
	for i := 0; i < window; i++ {
		coeffs[i] = pseudo.At(0, i)
	}
	return coeffs, nil
}

// smoothRow applies the Savitzky-Golay filter to a single row of a
// trajectory, using edge-truncated coefficients (re-fit over a shrinking
// window) for the first and last half-window columns so the output has the
// same length as the input.
func smoothRow(row []float64, window, polyOrder int) ([]float64, error) {
	n := len(row)
	out := make([]float64, n)
	half := window / 2

	coeffs, err := savitzkyGolayCoeffs(window, polyOrder)
	if err != nil {
		return nil, err
	}

	for k := 0; k < n; k++ {
		lo := k - half
		hi := k + half
		if lo >= 0 && hi < n {
			sum := 0.0
			for i := 0; i < window; i++ {
				sum += coeffs[i] * row[lo+i]
			}
			out[k] = sum
			continue
		}
		// near an edge: clamp the window to stay inside the row and refit.
		w := window
		if k < half {
			w = 2*k + 1
		} else if n-1-k < half {
			w = 2*(n-1-k) + 1
		}
		if w < polyOrder+2 {
			out[k] = row[k]
			continue
		}
		edgeCoeffs, err := savitzkyGolayCoeffs(w, polyOrder)
		if err != nil {
			out[k] = row[k]
			continue
		}
		eh := w / 2
		sum := 0.0
		for i := 0; i < w; i++ {
			sum += edgeCoeffs[i] * row[k-eh+i]
		}
		out[k] = sum
	}
	return out, nil
}

// smoothTrajectory applies savitzky-golay smoothing independently to every
// row (control coordinate) of traj.
func smoothTrajectory(traj *mat.Dense, cfg *mppi.Smoothing) (*mat.Dense, error) {
	rows, cols := traj.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		row := mat.Row(nil, r, traj)
		smoothed, err := smoothRow(row, cfg.Window, cfg.PolyOrder)
		if err != nil {
			return nil, err
		}
		out.SetRow(r, smoothed)
	}
	return out, nil
}
