package refdata

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RigidTransform is a 2-D rotation + translation between the local
// Cartesian frame and UTM. GNSS consumers need it to compare satellite
// solutions (UTM/ECEF) against terrestrial ground truth (local frame).
type RigidTransform struct {
	// R is the 2x2 rotation matrix.
	R [2][2]float64
	// T is the translation applied after rotation.
	T [2]float64
}

// FitRigid estimates the transform from surveyed control-point pairs
// (src in the local frame, dst in UTM) with the SVD-based Kabsch method.
// At least two non-coincident pairs are required.
func FitRigid(src, dst [][2]float64) (*RigidTransform, error) {
	if len(src) != len(dst) {
		return nil, fmt.Errorf("control point count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < 2 {
		return nil, errors.New("rigid fit needs at least two control points")
	}

	n := float64(len(src))
	var cs, cd [2]float64
	for i := range src {
		cs[0] += src[i][0] / n
		cs[1] += src[i][1] / n
		cd[0] += dst[i][0] / n
		cd[1] += dst[i][1] / n
	}

	// Cross-covariance of the centered point sets.
	h := mat.NewDense(2, 2, nil)
	for i := range src {
		sx, sy := src[i][0]-cs[0], src[i][1]-cs[1]
		dx, dy := dst[i][0]-cd[0], dst[i][1]-cd[1]
		h.Set(0, 0, h.At(0, 0)+sx*dx)
		h.Set(0, 1, h.At(0, 1)+sx*dy)
		h.Set(1, 0, h.At(1, 0)+sy*dx)
		h.Set(1, 1, h.At(1, 1)+sy*dy)
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, errors.New("svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V * U^T, with a reflection guard on det(R).
	var r mat.Dense
	r.Mul(&v, u.T())
	if mat.Det(&r) < 0 {
		d := mat.NewDiagDense(2, []float64{1, -1})
		var vd mat.Dense
		vd.Mul(&v, d)
		r.Mul(&vd, u.T())
	}

	rt := &RigidTransform{
		R: [2][2]float64{
			{r.At(0, 0), r.At(0, 1)},
			{r.At(1, 0), r.At(1, 1)},
		},
	}
	rx, ry := rt.rotate(cs[0], cs[1])
	rt.T = [2]float64{cd[0] - rx, cd[1] - ry}
	return rt, nil
}

func (t *RigidTransform) rotate(x, y float64) (float64, float64) {
	return t.R[0][0]*x + t.R[0][1]*y, t.R[1][0]*x + t.R[1][1]*y
}

// Apply maps a local-frame point into UTM.
func (t *RigidTransform) Apply(x, y float64) (float64, float64) {
	rx, ry := t.rotate(x, y)
	return rx + t.T[0], ry + t.T[1]
}

// Inverse returns the UTM → local transform.
func (t *RigidTransform) Inverse() *RigidTransform {
	// For a rotation, the inverse is the transpose.
	inv := &RigidTransform{
		R: [2][2]float64{
			{t.R[0][0], t.R[1][0]},
			{t.R[0][1], t.R[1][1]},
		},
	}
	rx, ry := inv.rotate(t.T[0], t.T[1])
	inv.T = [2]float64{-rx, -ry}
	return inv
}
