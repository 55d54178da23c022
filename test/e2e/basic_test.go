package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

var _ = Describe("rota binary", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	run := func(content string, args ...string) *gexec.Session {
		path := filepath.Join(dir, "input.json")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

		By("running rota " + args[0])
		cmd := exec.Command(rotaPath, append(args, path)...)
		cmd.Dir = dir
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).ToNot(HaveOccurred())
		Eventually(session, 30*time.Second).Should(gexec.Exit())
		return session
	}

	When("an assignment exists", func() {
		It("prints one line per attendee and exits 0", func() {
			session := run(`{
				"attendees": [{"name": "Alice"}, {"name": "Bob"}],
				"timeslots": [{"name": "Room A", "capacity": 1}, {"name": "Room B", "capacity": 1}]
			}`, "assign")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say(` Alice -> Room [AB]\n`))
			Expect(session.Out).To(gbytes.Say(` Bob -> Room [AB]\n`))
		})
	})

	When("no assignment exists", func() {
		It("exits 2", func() {
			session := run(`{
				"attendees": [{"name": "Alice"}, {"name": "Bob"}],
				"timeslots": [{"name": "Room A", "capacity": 1}]
			}`, "assign")
			Expect(session.ExitCode()).To(Equal(2))
			Expect(session.Err).To(gbytes.Say("no valid assignment found"))
		})
	})

	When("the input is malformed", func() {
		It("exits 1", func() {
			session := run(`{"attendees": [{"name": 1}], "timeslots": []}`, "assign")
			Expect(session.ExitCode()).To(Equal(1))
			Expect(session.Err).To(gbytes.Say("malformed input"))
		})
	})

	When("exporting dimacs", func() {
		It("writes the formula to stdout", func() {
			session := run(`{
				"attendees": [{"name": "Alice"}],
				"timeslots": [{"name": "Room A"}]
			}`, "dimacs")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say(`c 2 "Alice"@"Room A"\np cnf `))
		})
	})
})
