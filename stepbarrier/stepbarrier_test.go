package stepbarrier_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/feras-hamam/adastream/stepbarrier"
)

var _ = Describe("Barrier", func() {
	var b *stepbarrier.Barrier

	BeforeEach(func() {
		b = stepbarrier.New()
	})

	It("releases a step only once both streams report done", func() {
		done := make(chan int, 1)
		go func() {
			step, _, ok := b.WaitAndTakeNext()
			Expect(ok).To(BeTrue())
			done <- step
		}()

		b.MarkDone(0, stepbarrier.Reduced)
		Consistently(done, 20*time.Millisecond).ShouldNot(Receive())

		b.MarkDone(0, stepbarrier.Augmentation)
		Eventually(done, time.Second).Should(Receive(Equal(0)))
	})

	It("releases steps in strictly increasing order", func() {
		b.MarkDone(1, stepbarrier.Reduced)
		b.MarkDone(1, stepbarrier.Augmentation)

		released := make(chan int, 1)
		go func() {
			step, _, _ := b.WaitAndTakeNext()
			released <- step
		}()
		Consistently(released, 20*time.Millisecond).ShouldNot(Receive())

		b.MarkDone(0, stepbarrier.Reduced)
		b.MarkDone(0, stepbarrier.Augmentation)
		Eventually(released, time.Second).Should(Receive(Equal(0)))

		step, _, ok := b.WaitAndTakeNext()
		Expect(ok).To(BeTrue())
		Expect(step).To(Equal(1))
	})

	It("treats repeated filenames on the same stream as idempotent", func() {
		Expect(func() {
			b.NoteFilename(0, stepbarrier.Reduced, "a.bin")
			b.NoteFilename(0, stepbarrier.Reduced, "a.bin")
			b.NoteFilename(0, stepbarrier.Augmentation, "a.bin")
		}).NotTo(Panic())
	})

	It("surfaces the recorded filenames when the step is taken", func() {
		b.NoteFilename(0, stepbarrier.Reduced, "a.bin")
		b.NoteFilename(0, stepbarrier.Reduced, "a.bin")
		b.NoteFilename(0, stepbarrier.Reduced, "b.bin")
		b.NoteFilename(0, stepbarrier.Augmentation, "a.aug")

		b.MarkDone(0, stepbarrier.Reduced)
		b.MarkDone(0, stepbarrier.Augmentation)

		step, files, ok := b.WaitAndTakeNext()
		Expect(ok).To(BeTrue())
		Expect(step).To(Equal(0))
		Expect(files.Reduced).To(Equal([]string{"a.bin", "b.bin"}))
		Expect(files.Augmentation).To(Equal([]string{"a.aug"}))
	})

	It("unblocks waiters with ok=false once closed", func() {
		done := make(chan bool, 1)
		go func() {
			_, _, ok := b.WaitAndTakeNext()
			done <- ok
		}()

		time.Sleep(10 * time.Millisecond)
		b.Close()

		Eventually(done, time.Second).Should(Receive(BeFalse()))
	})
})
