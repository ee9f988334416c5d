package tlsbench

import (
	mrand "math/rand"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestTLSBench(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TLS Bench Suite")
}

var _ = BeforeSuite(func() {
	mrand.Seed(GinkgoRandomSeed())
})
