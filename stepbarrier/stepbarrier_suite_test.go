package stepbarrier_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestStepBarrier(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}
