package office

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Office", func() {
	var (
		o     *Office
		clock *ManualClock
		sink  *recordingSink
	)

	BeforeEach(func() {
		o, clock, sink = newTestOffice(2)
	})

	Describe("Scenario: configure, book and occupy a room", func() {
		It("reports each step and turns the actuators on", func() {
			Expect(o.SetRoomCapacity(1, 5).String()).To(Equal("Room 1 maximum capacity set to 5."))
			Expect(o.BlockRoom(1, NewTimeOfDay(9, 0), 30).String()).To(Equal("Room 1 booked."))
			Expect(o.AddOccupant(1, 2).String()).To(Equal("Room 1 occupants set to 2"))
			Expect(sink.Messages()).To(Equal([]string{"Light in room 1 ON", "AC in room 1 ON"}))
			Expect(o.RoomStatus(1).String()).To(Equal("Room 1 | Capacity: 5 | Occupants: 2 | Booked: 09:00 for 30min"))
		})
	})

	Context("when room 1 is booked 09:00-09:30", func() {
		BeforeEach(func() {
			o.SetRoomCapacity(1, 5)
			Expect(o.BlockRoom(1, NewTimeOfDay(9, 0), 30).Succeeded()).To(BeTrue())
		})

		Describe("Scenario: conflicting booking", func() {
			It("is rejected and leaves the booking alone", func() {
				res := o.BlockRoom(1, NewTimeOfDay(9, 15), 20)
				Expect(res.Outcome).To(Equal(Conflict))
				Expect(res.String()).To(Equal("Room 1 is already booked."))
				Expect(o.RoomStatus(1).String()).To(HaveSuffix("Booked: 09:00 for 30min"))
			})
		})

		Describe("Scenario: non-conflicting booking", func() {
			It("replaces the booking", func() {
				Expect(o.BlockRoom(1, NewTimeOfDay(10, 0), 20).String()).To(Equal("Room 1 booked."))
				Expect(o.RoomStatus(1).String()).To(HaveSuffix("Booked: 10:00 for 20min"))
			})
		})

		Describe("Scenario: over capacity", func() {
			It("is rejected and occupants are unchanged", func() {
				o.AddOccupant(1, 2)
				res := o.AddOccupant(1, 99)
				Expect(res.Outcome).To(Equal(CapacityExceeded))
				Expect(res.String()).To(Equal("Capacity exceeded"))
				Expect(o.RoomStatus(1).String()).To(ContainSubstring("Occupants: 2"))
			})
		})

		Describe("Scenario: nobody shows up", func() {
			It("releases the booking on the next sweep after five minutes", func() {
				sink.Reset()
				clock.Advance(5 * time.Minute)
				Expect(o.Sweep(clock.Now())).To(Equal(1))
				Expect(sink.Messages()).To(Equal([]string{"Room 1 booking auto-released."}))
				Expect(o.RoomStatus(1).String()).To(HaveSuffix("Booked: No"))
			})

			It("keeps the booking while anyone is in the room", func() {
				o.AddOccupant(1, 1)
				clock.Advance(time.Hour)
				Expect(o.Sweep(clock.Now())).To(BeZero())
				Expect(o.RoomStatus(1).String()).To(HaveSuffix("Booked: 09:00 for 30min"))
			})
		})
	})

	Describe("Scenario: unknown room", func() {
		It("reports that the room does not exist", func() {
			res := o.RoomStatus(99)
			Expect(res.Outcome).To(Equal(NotFound))
			Expect(res.String()).To(Equal("Room 99 does not exist."))
		})
	})

	Describe("repeated identical occupancy writes", func() {
		It("does not log additional actuator events", func() {
			o.AddOccupant(2, 3)
			Expect(sink.Messages()).To(HaveLen(2))
			for i := 0; i < 5; i++ {
				o.AddOccupant(2, 3)
			}
			Expect(sink.Messages()).To(HaveLen(2))
		})
	})
})
