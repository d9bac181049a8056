package core

import "gobmc/protocol"

// Speaker plays one note at a time on a PWM pin. Writing SpeakerDuration
// starts a note using the current period and duty cycle registers; the note
// stops by itself when the duration runs out.
type Speaker struct {
	pwm   PWMDriver
	pin   PWMPin
	store *RegisterStore

	playing bool
	stopAt  uint32
	timer   Timer
	queued  bool
}

// NewSpeaker creates a silent speaker
func NewSpeaker(pwm PWMDriver, pin PWMPin, store *RegisterStore) *Speaker {
	s := &Speaker{pwm: pwm, pin: pin, store: store}
	s.timer.Handler = s.expire
	return s
}

// Period returns the note period in 48kHz ticks
func (s *Speaker) Period() uint16 {
	return uint16(s.store.Uint8(protocol.RegSpeakerPeriodHigh))<<8 |
		uint16(s.store.Uint8(protocol.RegSpeakerPeriodLow))
}

// Playing reports whether a note is sounding
func (s *Speaker) Playing() bool {
	return s.playing
}

// HandleWrite reacts to host writes of the speaker registers
func (s *Speaker) HandleWrite(address uint8) {
	switch address {
	case protocol.RegSpeakerDuration:
		s.start(uint32(s.store.Uint8(protocol.RegSpeakerDuration)))
	case protocol.RegSpeakerDutyCycle:
		if s.playing {
			s.setDuty(s.store.Uint8(protocol.RegSpeakerDutyCycle))
		}
	}
}

func (s *Speaker) start(durationMS uint32) {
	period := uint32(s.Period())
	if durationMS == 0 || period == 0 {
		s.Stop()
		return
	}
	if s.pwm == nil || s.pin == NoPWMPin {
		return
	}

	cycleTicks := uint32(uint64(period) * TimerFreq / SpeakerTickHz)
	if _, err := s.pwm.ConfigureHardwarePWM(s.pin, cycleTicks); err != nil {
		DebugAsync("[SPEAKER] configure: " + err.Error())
		return
	}
	s.setDuty(s.store.Uint8(protocol.RegSpeakerDutyCycle))
	s.playing = true

	s.stopAt = GetTime() + TimerFromMS(durationMS)
	if !s.queued {
		s.timer.WakeTime = s.stopAt
		s.queued = true
		ScheduleTimer(&s.timer)
	}
}

func (s *Speaker) setDuty(duty uint8) {
	value := PWMValue(uint32(duty) * s.pwm.GetMaxValue() / 255)
	if err := s.pwm.SetDutyCycle(s.pin, value); err != nil {
		DebugAsync("[SPEAKER] duty: " + err.Error())
	}
}

// expire runs from the scheduler. A note restarted while the timer was
// queued moves stopAt later, so the timer follows it.
func (s *Speaker) expire(t *Timer) uint8 {
	if s.playing && timerIsBefore(currentTime, s.stopAt) {
		t.WakeTime = s.stopAt
		return SF_RESCHEDULE
	}
	s.queued = false
	s.Stop()
	return SF_DONE
}

// Stop silences the speaker and clears the duration register
func (s *Speaker) Stop() {
	if s.playing && s.pwm != nil {
		if err := s.pwm.SetDutyCycle(s.pin, 0); err != nil {
			DebugAsync("[SPEAKER] stop: " + err.Error())
		}
	}
	s.playing = false
	s.store.Set(protocol.RegSpeakerDuration, 0)
}
