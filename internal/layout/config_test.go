package layout_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/trait"
)

var _ = Describe("Config", func() {
	It("ships valid defaults", func() {
		cfg := layout.DefaultConfig()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.ForceLaw).To(Equal("spring"))
		Expect(cfg.Integrator).To(Equal("euler"))
		Expect(cfg.Range).To(Equal(trait.DefaultRange()))
	})

	It("accepts damping of exactly one", func() {
		cfg := layout.DefaultConfig()
		cfg.Damping = 1
		Expect(cfg.Validate()).To(Succeed())
	})

	It("applies only the fields a patch sets", func() {
		k := 3.0
		on := false
		r := trait.Range{Lo: -1, Hi: 1}
		base := layout.DefaultConfig()

		got := layout.ConfigPatch{KRepulsion: &k, EnergyMonitor: &on, Range: &r}.Apply(base)

		want := base
		want.KRepulsion = 3
		want.EnergyMonitor = false
		want.Range = r
		Expect(got).To(Equal(want))
	})

	It("reports empty patches", func() {
		Expect(layout.ConfigPatch{}.IsEmpty()).To(BeTrue())
		v := 1.0
		Expect(layout.ConfigPatch{Dt: &v}.IsEmpty()).To(BeFalse())
	})
})
