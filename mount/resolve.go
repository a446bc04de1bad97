package mount

import "math"

// reduceDegrees maps any angle into [0, 360).
func reduceDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// azimuthTargetSteps resolves a target bearing for the continuously
// rotating azimuth axis. The move is always the shortest rotational
// path (at most 180 degrees) from the current position, and the result
// accumulates on the absolute step count rather than resetting it, so
// multi-revolution tracking keeps a consistent frame.
func azimuthTargetSteps(targetDeg float64, currentSteps int64, stepsPerDeg float64) int64 {
	targetDeg = reduceDegrees(targetDeg)
	currentDegRaw := float64(currentSteps) / stepsPerDeg
	currentDeg := currentDegRaw - 360*math.Floor(currentDegRaw/360)
	diff := targetDeg - currentDeg
	if diff < -180 {
		diff += 360
	}
	if diff > 180 {
		diff -= 360
	}
	return currentSteps + int64(math.Round(diff*stepsPerDeg))
}

// clampElevation bounds a target angle to the mechanical travel.
func clampElevation(targetDeg, min, max float64) float64 {
	if targetDeg > max {
		return max
	}
	if targetDeg < min {
		return min
	}
	return targetDeg
}

// elevationTargetSteps resolves a target angle for the bounded
// elevation axis. No wraparound; the axis is mechanically limited.
func elevationTargetSteps(targetDeg, min, max, stepsPerDeg float64) int64 {
	return int64(math.Round(clampElevation(targetDeg, min, max) * stepsPerDeg))
}
