package traj

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTrajectorySuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Trajectory Preprocessing Suite")
}
