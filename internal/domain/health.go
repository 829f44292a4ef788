package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	caloriesPerStep = 0.04
	kmPerStep       = 0.000762
)

// BMI is the body mass index with its category.
type BMI struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// CalculateBMI computes the BMI from height in centimeters and weight in kilograms.
// Returns nil when either measurement is missing.
func CalculateBMI(heightCm, weightKg float64) *BMI {
	if heightCm <= 0 || weightKg <= 0 {
		return nil
	}
	h := heightCm / 100
	v := weightKg / (h * h)

	var category string
	switch {
	case v < 18.5:
		category = "Underweight"
	case v < 24.9:
		category = "Normal"
	case v < 29.9:
		category = "Overweight"
	default:
		category = "Obese"
	}
	return &BMI{Value: roundTo(v, 1), Category: category}
}

// CaloriesForSteps estimates burned calories for a step count.
func CaloriesForSteps(steps int) int {
	return int(math.Round(float64(steps) * caloriesPerStep))
}

// DistanceKmForSteps estimates the covered distance in kilometers, two decimals.
func DistanceKmForSteps(steps int) float64 {
	return roundTo(float64(steps)*kmPerStep, 2)
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// StepSample is an incremental step count pushed by a device.
type StepSample struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Steps      int                `bson:"steps" json:"steps"` // Delta since the device's previous sample
	RecordedAt time.Time          `bson:"recordedAt" json:"recordedAt"`
}
