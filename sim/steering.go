package sim

import (
	"github.com/flock2go/starling/vmath"
)

// integrateRange steers and advances the birds in slots [lo, hi).
//
// Steering is the classic three-rule vector model: avoid the nearest
// neighbor, align with the neighborhood velocity, cohere toward the
// neighborhood center. Birds that see too few others in their cone get
// an extra pull toward the flock's center of mass, which keeps the
// periphery from peeling away. The force integrates into velocity,
// velocity is clamped to the flight envelope, and the heading turns
// toward the velocity axis by the stability fraction.
func (s *Simulation) integrateRange(lo, hi int) {
	d := &s.cfg.Derived
	dt := d.DT32
	boundaryCnt := float32(s.cfg.Flight.BoundaryCnt)

	for i := lo; i < hi; i++ {
		var force vmath.Vec3

		if j := s.res.Near[i]; j >= 0 {
			toward := s.pos[j].Sub(s.pos[i]).Normalized()
			force = force.Sub(toward.Scale(d.Avoid32))
		}
		if s.res.Topo[i] > 0 {
			force = force.Add(s.res.AveVel[i].Sub(s.vel[i]).Scale(d.Align32))
			force = force.Add(s.res.AvePos[i].Sub(s.pos[i]).Scale(d.Cohere32))
		}
		if boundaryCnt > 0 {
			if frac := float32(s.res.Cone[i]) / boundaryCnt; frac < 1 {
				inward := s.centroid.Sub(s.pos[i]).Normalized()
				force = force.Add(inward.Scale(d.BoundaryAmt * (1 - frac)))
			}
		}

		accel := force.Scale(1 / d.Mass32)
		vel := s.vel[i].Add(accel.Scale(dt))
		vel = vel.ClampLen(d.MinSpeed32, d.MaxSpeed32)
		pos := s.pos[i].Add(vel.Add(d.Wind).Scale(dt))

		// The x and z faces wrap; the ground and ceiling reflect.
		if pos.X < d.BoundMin.X {
			pos.X = d.BoundMax.X
		} else if pos.X > d.BoundMax.X {
			pos.X = d.BoundMin.X
		}
		if pos.Z < d.BoundMin.Z {
			pos.Z = d.BoundMax.Z
		} else if pos.Z > d.BoundMax.Z {
			pos.Z = d.BoundMin.Z
		}
		if pos.Y < d.BoundMin.Y {
			pos.Y = d.BoundMin.Y
			if vel.Y < 0 {
				vel.Y = -vel.Y
			}
		} else if pos.Y > d.BoundMax.Y {
			pos.Y = d.BoundMax.Y
			if vel.Y > 0 {
				vel.Y = -vel.Y
			}
		}

		ori := s.ori[i]
		if vax := vel.Normalized(); vax != (vmath.Vec3{}) {
			turn := vmath.QuatIdent().Nlerp(vmath.FromTo(ori.Forward(), vax), d.Stability32)
			ori = turn.Mul(ori).Normalized()
		}

		s.newVel[i] = vel
		s.newPos[i] = pos
		s.newOri[i] = ori
	}
}
