package facemark

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SamplingStrategy selects how the initial shape estimates of the
// training samples are synthesized from the ground truth database.
type SamplingStrategy int

const (
	// SampleShapes copies a randomly chosen ground truth shape of a
	// different image as the starting estimate.
	SampleShapes SamplingStrategy = iota
	// SampleCombinations forms random convex combinations of the
	// ground truth shapes, increasing the estimate diversity beyond
	// the discrete training set.
	SampleCombinations
)

// AlgorithmParameters bundles the training hyperparameters. The bundle
// is set once before training and never mutated afterwards.
type AlgorithmParameters struct {
	// NumCascades is the number of boosting stages.
	NumCascades int `yaml:"numCascades"`
	// NumTrees is the number of regression trees fit per stage.
	NumTrees int `yaml:"numTrees"`
	// MaxTreeDepth bounds the depth of every regression tree.
	MaxTreeDepth int `yaml:"maxTreeDepth"`
	// NumRandomPixelCoordinates is the size of the pixel coordinate
	// pool sampled per stage.
	NumRandomPixelCoordinates int `yaml:"numRandomPixelCoordinates"`
	// NumRandomSplitTestsPerNode is the number of candidate split
	// tests evaluated at every tree node.
	NumRandomSplitTestsPerNode int `yaml:"numRandomSplitTestsPerNode"`
	// ExponentialLambda controls the spatial prior: pixel pairs that
	// lie close together are preferred with probability exp(-lambda*d).
	ExponentialLambda float64 `yaml:"exponentialLambda"`
	// LearningRate scales each leaf contribution to slow convergence
	// and reduce overfitting.
	LearningRate float64 `yaml:"learningRate"`
	// NumInitializationsPerImage is the number of bootstrap estimates
	// synthesized per database image.
	NumInitializationsPerImage int `yaml:"numInitializationsPerImage"`
	// ValidationPercent is the fraction of samples held out for
	// per-stage validation error reporting.
	ValidationPercent float64 `yaml:"validationPercent"`
	// MinSplitSamples is the smallest node population still eligible
	// for splitting; smaller nodes become leaves.
	MinSplitSamples int `yaml:"minSplitSamples"`
	// Strategy selects the bootstrap synthesis strategy.
	Strategy SamplingStrategy `yaml:"strategy"`
}

// DefaultParameters returns the parameter set the original algorithm
// was published with.
func DefaultParameters() AlgorithmParameters {
	return AlgorithmParameters{
		NumCascades:                10,
		NumTrees:                   500,
		MaxTreeDepth:               5,
		NumRandomPixelCoordinates:  400,
		NumRandomSplitTestsPerNode: 20,
		ExponentialLambda:          0.1,
		LearningRate:               0.1,
		NumInitializationsPerImage: 20,
		ValidationPercent:          0.1,
		MinSplitSamples:            2,
		Strategy:                   SampleShapes,
	}
}

// LoadParameters reads a parameter bundle from a YAML file. Missing
// fields keep their default values.
func LoadParameters(path string) (AlgorithmParameters, error) {
	params := DefaultParameters()

	data, err := os.ReadFile(path)
	if err != nil {
		return params, errors.Wrap(err, "reading the parameters file")
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, errors.Wrap(err, "parsing the parameters file")
	}

	return params, params.Validate()
}

// Validate fails fast on parameter combinations no training run can
// proceed with.
func (p AlgorithmParameters) Validate() error {
	if p.NumCascades <= 0 {
		return errors.New("the number of cascades should be greater than zero")
	}
	if p.NumTrees <= 0 {
		return errors.New("the number of trees per cascade should be greater than zero")
	}
	if p.MaxTreeDepth <= 0 {
		return errors.New("the tree depth should be greater than zero")
	}
	if p.NumRandomPixelCoordinates <= 0 {
		return errors.New("the pixel coordinate pool should not be empty")
	}
	if p.NumRandomSplitTestsPerNode <= 0 {
		return errors.New("at least one split test per node is required")
	}
	if p.NumInitializationsPerImage <= 0 {
		return errors.New("at least one initialization per image is required")
	}
	if p.LearningRate <= 0 {
		return errors.New("the learning rate should be greater than zero")
	}
	if p.Strategy != SampleShapes && p.Strategy != SampleCombinations {
		return errors.New("unknown sampling strategy")
	}
	return nil
}
