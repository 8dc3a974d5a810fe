/*
DESCRIPTION
  normalize.go implements the seven normalization regimes applied to raw
  samples before rejection and before combination. Scale-based regimes use
  the two-sided scale estimates, selecting the side by the sample's
  position relative to the frame location. The adaptive regime interpolates
  the per-frame statistics grids with thin-plate splines, giving a C1
  per-sample correction.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package integrate

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// tps is a thin-plate spline over scattered control points.
type tps struct {
	px, py []float64
	w      []float64 // kernel weights
	a0, ax, ay float64
}

// tpsKernel is U(r^2) = r^2 log r^2 with U(0) = 0.
func tpsKernel(r2 float64) float64 {
	if r2 <= 0 {
		return 0
	}
	return r2 * math.Log(r2)
}

// fitTPS fits a thin-plate spline interpolating vs at (xs, ys). The
// linear system [K P; P^T 0][w a]^T = [v 0]^T is solved densely; grids
// are at most 50x50 so the system stays small.
func fitTPS(xs, ys, vs []float64) (*tps, error) {
	n := len(xs)
	m := mat.NewDense(n+3, n+3, nil)
	rhs := mat.NewVecDense(n+3, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dx, dy := xs[i]-xs[j], ys[i]-ys[j]
			m.Set(i, j, tpsKernel(dx*dx+dy*dy))
		}
		m.Set(i, n, 1)
		m.Set(i, n+1, xs[i])
		m.Set(i, n+2, ys[i])
		m.Set(n, i, 1)
		m.Set(n+1, i, xs[i])
		m.Set(n+2, i, ys[i])
		rhs.SetVec(i, vs[i])
	}
	var sol mat.VecDense
	if err := sol.SolveVec(m, rhs); err != nil {
		return nil, err
	}
	t := &tps{
		px: append([]float64(nil), xs...),
		py: append([]float64(nil), ys...),
		w:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t.w[i] = sol.AtVec(i)
	}
	t.a0, t.ax, t.ay = sol.AtVec(n), sol.AtVec(n+1), sol.AtVec(n+2)
	return t, nil
}

// eval returns the spline value at (x, y).
func (t *tps) eval(x, y float64) float64 {
	v := t.a0 + t.ax*x + t.ay*y
	for i := range t.w {
		dx, dy := x-t.px[i], y-t.py[i]
		v += t.w[i] * tpsKernel(dx*dx+dy*dy)
	}
	return v
}

// adaptiveSurface interpolates the location and two-sided scale grids of
// one frame channel. A 1x1 grid degenerates to the global statistics, in
// which case the regime reduces to additive normalization with scaling.
type adaptiveSurface struct {
	constant                     bool
	constLoc, constSLo, constSHi float64
	loc, sLo, sHi                *tps
}

// newAdaptiveSurface builds the interpolating surfaces of channel c from
// the cached grids of st over a w x h frame.
func newAdaptiveSurface(st *FrameStats, c, w, h int) (adaptiveSurface, error) {
	g := st.GridSize
	if g <= 1 {
		return adaptiveSurface{
			constant:  true,
			constLoc:  st.AdaptiveLocation[c][0],
			constSLo:  st.AdaptiveScaleLow[c][0],
			constSHi:  st.AdaptiveScaleHigh[c][0],
		}, nil
	}
	xs := make([]float64, g*g)
	ys := make([]float64, g*g)
	for gy := 0; gy < g; gy++ {
		for gx := 0; gx < g; gx++ {
			xs[gy*g+gx] = (float64(gx) + 0.5) * float64(w) / float64(g)
			ys[gy*g+gx] = (float64(gy) + 0.5) * float64(h) / float64(g)
		}
	}
	loc, err := fitTPS(xs, ys, st.AdaptiveLocation[c])
	if err != nil {
		return adaptiveSurface{}, err
	}
	sLo, err := fitTPS(xs, ys, st.AdaptiveScaleLow[c])
	if err != nil {
		return adaptiveSurface{}, err
	}
	sHi, err := fitTPS(xs, ys, st.AdaptiveScaleHigh[c])
	if err != nil {
		return adaptiveSurface{}, err
	}
	return adaptiveSurface{loc: loc, sLo: sLo, sHi: sHi}, nil
}

// at returns the interpolated location and two-sided scales at (x, y).
func (s *adaptiveSurface) at(x, y int) (loc, sLo, sHi float64) {
	if s.constant {
		return s.constLoc, s.constSLo, s.constSHi
	}
	fx, fy := float64(x)+0.5, float64(y)+0.5
	return s.loc.eval(fx, fy), s.sLo.eval(fx, fy), s.sHi.eval(fx, fy)
}

// normalizer maps a raw sample of one frame channel to a normalized
// sample under a regime. Normalizers are pure; the same implementations
// serve the rejection and output stages.
type normalizer struct {
	regime  Normalization
	noScale bool

	// Frame and reference global statistics for channel c.
	loc, ref           float64
	sLo, sHi           float64
	refSLo, refSHi     float64

	// Local normalization planes.
	width          int
	localA, localB []float32

	// Adaptive surfaces.
	surf, refSurf *adaptiveSurface
}

// newNormalizer builds the channel-c normalizer of frame f against the
// reference frame ref.
func newNormalizer(regime Normalization, noScale bool, f, ref *IntegrationFile, c int) normalizer {
	n := normalizer{
		regime:  regime,
		noScale: noScale,
		width:   f.geom.Width,
	}
	if f.stats != nil && ref.stats != nil {
		n.loc, n.ref = f.stats.Location[c], ref.stats.Location[c]
		n.sLo, n.sHi = f.stats.ScaleLow[c], f.stats.ScaleHigh[c]
		n.refSLo, n.refSHi = ref.stats.ScaleLow[c], ref.stats.ScaleHigh[c]
	}
	if regime == NormLocal && f.localA != nil {
		n.localA, n.localB = f.localA[c], f.localB[c]
	}
	if regime == NormAdaptive && f.adaptive != nil && ref.adaptive != nil {
		n.surf, n.refSurf = &f.adaptive[c], &ref.adaptive[c]
	}
	return n
}

// scaleFactor returns sigma_ref/sigma_i for the side of s, or 1 when the
// frame scale vanishes.
func scaleFactor(s, loc, sLo, sHi, refSLo, refSHi float64) float64 {
	var si, sr float64
	if s <= loc {
		si, sr = sLo, refSLo
	} else {
		si, sr = sHi, refSHi
	}
	if si <= 0 || sr <= 0 {
		return 1
	}
	return sr / si
}

// normalize maps raw sample s at pixel (x, y) to its normalized value.
func (n *normalizer) normalize(s float64, x, y int) float64 {
	switch n.regime {
	case NormAdditive:
		return s - n.loc + n.ref

	case NormMultiplicative:
		if n.loc == 0 {
			return s
		}
		return s * n.ref / n.loc

	case NormAdditiveScaling:
		k := scaleFactor(s, n.loc, n.sLo, n.sHi, n.refSLo, n.refSHi)
		return (s-n.loc)*k + n.ref

	case NormMultiplicativeScaling:
		if n.loc == 0 {
			return s
		}
		k := scaleFactor(s, n.loc, n.sLo, n.sHi, n.refSLo, n.refSHi)
		return ((s-n.loc)*k + n.loc) * n.ref / n.loc

	case NormLocal:
		if n.localA == nil {
			return s
		}
		i := y*n.width + x
		return float64(n.localA[i])*s + float64(n.localB[i])

	case NormAdaptive:
		if n.surf == nil || n.refSurf == nil {
			return s
		}
		li, sLo, sHi := n.surf.at(x, y)
		lr, rLo, rHi := n.refSurf.at(x, y)
		if n.noScale {
			return s - li + lr
		}
		k := scaleFactor(s, li, sLo, sHi, rLo, rHi)
		return (s-li)*k + lr

	default:
		return s
	}
}
