package rng

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RngTestSuite struct {
	suite.Suite
}

func TestRngSuite(t *testing.T) {
	suite.Run(t, new(RngTestSuite))
}

func (suite *RngTestSuite) TestSeededSourceIsDeterministic() {
	a := New(42)
	b := New(42)

	for i := 0; i < 10; i++ {
		suite.Equal(a.Float64(), b.Float64())
	}
}

func (suite *RngTestSuite) TestSourceRange() {
	source := New(1)
	for i := 0; i < 100; i++ {
		v := source.Float64()
		suite.GreaterOrEqual(v, 0.0)
		suite.Less(v, 1.0)

		n := source.Intn(5)
		suite.GreaterOrEqual(n, 0)
		suite.Less(n, 5)
	}
}

func (suite *RngTestSuite) TestSequenceReplaysAndCycles() {
	seq := NewSequence(0.1, 0.9)

	suite.Equal(0.1, seq.Float64())
	suite.Equal(0.9, seq.Float64())
	suite.Equal(0.1, seq.Float64())
}

func (suite *RngTestSuite) TestEmptySequenceYieldsZero() {
	seq := NewSequence()
	suite.Equal(0.0, seq.Float64())
	suite.Equal(0, seq.Intn(10))
}

func (suite *RngTestSuite) TestSequenceIntn() {
	seq := NewSequence(0.5)
	suite.Equal(5, seq.Intn(10))
}
