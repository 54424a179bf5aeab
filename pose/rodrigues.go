package pose

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/stereonav/vo/internal/numeric"
)

// Hat returns the skew-symmetric cross-product matrix [v]_x such that
// [v]_x * w == v.Cross(w) for any w.
func Hat(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

func identity3() *mat.Dense {
	I := mat.NewDense(3, 3, nil)
	I.Set(0, 0, 1)
	I.Set(1, 1, 1)
	I.Set(2, 2, 1)
	return I
}

// cosc is the stable form of (1-cos(theta))/theta^2, with limit 1/2 at theta=0.
func cosc(theta float64) float64 {
	if theta == 0 {
		return 0.5
	}
	return (1 - math.Cos(theta)) / (theta * theta)
}

// RotationMatrix applies the Rodrigues formula to the axis-angle vector
// omega (magnitude = rotation angle, direction = rotation axis), returning
// the corresponding 3x3 rotation matrix. Stable at omega=0 via sinc/cosc.
func RotationMatrix(omega r3.Vector) *mat.Dense {
	theta := omega.Norm()
	K := Hat(omega)
	var K2 mat.Dense
	K2.Mul(K, K)

	R := identity3()
	K.Scale(numeric.Sinc(theta), K)
	R.Add(R, K)
	K2.Scale(cosc(theta), &K2)
	R.Add(R, &K2)
	return R
}

// AxisAngleFromMatrix is the inverse of RotationMatrix: given a rotation
// matrix, recover the axis-angle vector with magnitude in [0, pi]. Stable
// near theta=0 via a first-order approximation.
func AxisAngleFromMatrix(R *mat.Dense) r3.Vector {
	trace := R.At(0, 0) + R.At(1, 1) + R.At(2, 2)
	cosTheta := numeric.Clamp((trace-1)/2, -1, 1)
	theta := math.Acos(cosTheta)

	dx := R.At(2, 1) - R.At(1, 2)
	dy := R.At(0, 2) - R.At(2, 0)
	dz := R.At(1, 0) - R.At(0, 1)

	if theta < 1e-9 {
		return r3.Vector{X: 0.5 * dx, Y: 0.5 * dy, Z: 0.5 * dz}
	}
	k := theta / (2 * math.Sin(theta))
	return r3.Vector{X: k * dx, Y: k * dy, Z: k * dz}
}

// RightJacobianInverse computes L^{-1}(omega), the closed-form inverse of
// the right Jacobian of SO(3) at omega used by the stereo and odometry
// cost functors:
//
//	L^{-1}(w) = I + (theta/2)*sinc(theta/2)*u^ + (1-sinc(theta))*u^*u^
//
// where theta = |w|, u^ = [w/theta]_x. At theta=0, L^{-1}(w) = I exactly.
func RightJacobianInverse(omega r3.Vector) *mat.Dense {
	theta := omega.Norm()
	if theta == 0 {
		return identity3()
	}
	axis := omega.Mul(1 / theta)
	uHat := Hat(axis)
	var u2 mat.Dense
	u2.Mul(uHat, uHat)

	result := identity3()
	uHat.Scale(theta/2*numeric.Sinc(theta/2), uHat)
	result.Add(result, uHat)
	u2.Scale(1-numeric.Sinc(theta), &u2)
	result.Add(result, &u2)
	return result
}

// MatVec applies a 3x3 matrix to a vector: R*v.
func MatVec(R *mat.Dense, v r3.Vector) r3.Vector {
	return matVec(R, v)
}

func matVec(R *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: R.At(0, 0)*v.X + R.At(0, 1)*v.Y + R.At(0, 2)*v.Z,
		Y: R.At(1, 0)*v.X + R.At(1, 1)*v.Y + R.At(1, 2)*v.Z,
		Z: R.At(2, 0)*v.X + R.At(2, 1)*v.Y + R.At(2, 2)*v.Z,
	}
}

func transpose3(R *mat.Dense) *mat.Dense {
	T := mat.NewDense(3, 3, nil)
	T.CloneFrom(R.T())
	return T
}
