package convo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fieldops.app/incidentbot/internal/checkpoint"
	"fieldops.app/incidentbot/internal/convo"
	"fieldops.app/incidentbot/internal/model"
)

var _ = Describe("Engine", func() {
	const identity = "5215512345678"

	var (
		ctx         context.Context
		engine      *convo.Engine
		checkpoints *checkpoint.MemoryStore
		classifier  *mockClassifier
		extractor   *mockExtractor
		interpreter *mockInterpreter
		profiles    *mockProfiles
		tickets     *mockTickets
		st          *convo.State
	)

	bandCandidates := []convo.Candidate{
		{Code: "MEC-001", Label: "Falla de banda transportadora", Confidence: 0.92, Reason: "La descripción menciona la banda"},
		{Code: "SEG-001", Label: "Condición insegura en área de trabajo", Confidence: 0.35},
	}

	registeredProfile := func() *model.Profile {
		return &model.Profile{
			Identity: identity,
			Name:     "Ana",
			Line:     "Línea 1",
			Shift:    "Mañana",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		checkpoints = checkpoint.NewMemoryStore()
		classifier = &mockClassifier{classifyFn: func(context.Context, string, string) ([]convo.Candidate, error) {
			return bandCandidates, nil
		}}
		extractor = &mockExtractor{}
		interpreter = nil
		profiles = &mockProfiles{}
		tickets = &mockTickets{}
		st = convo.NewState(identity)
	})

	build := func() {
		var interp convo.ChoiceInterpreter
		if interpreter != nil {
			interp = interpreter
		}
		engine = convo.NewEngine(convo.Capabilities{
			Classifier:  classifier,
			Extractor:   extractor,
			Interpreter: interp,
			Catalog:     testCatalog(),
			Profiles:    profiles,
			Tickets:     tickets,
		}, checkpoints)
	}

	send := func(text string) convo.Result {
		GinkgoHelper()
		res, err := engine.Advance(ctx, st, &convo.Input{Text: text})
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Validate()).To(Succeed())
		return res
	}

	// openConversation walks a registered operator to the point where the
	// engine is waiting for the incident description.
	openConversation := func() {
		GinkgoHelper()
		profiles.getFn = func(context.Context, string) (*model.Profile, error) {
			return registeredProfile(), nil
		}
		build()
		res := send("hola")
		Expect(res.Control).To(Equal(convo.ControlPaused))
		Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
	}

	// reachSummary continues from the description pause to the confirmation
	// menu pause.
	reachSummary := func() {
		GinkgoHelper()
		send("se rompió la banda transportadora en empaque")
		send("1")
		send("Planta Norte")
		send("Celda 3")
		res := send("Clasificadora MOBA")
		Expect(res.Reply).To(ContainSubstring("Resumen del incidente"))
		Expect(st.AwaitingInput).To(Equal(convo.AwaitConfirmation))
	}

	Describe("greeting", func() {
		It("greets a registered operator by name and seeds the draft", func() {
			profiles.getFn = func(context.Context, string) (*model.Profile, error) {
				return registeredProfile(), nil
			}
			tickets.listRecentFn = func(context.Context, string, int) ([]model.TicketSummary, error) {
				return []model.TicketSummary{{ID: 42, Code: "MEC-001", Name: "Falla de banda transportadora"}}, nil
			}
			build()

			res := send("hola")

			Expect(res.Control).To(Equal(convo.ControlPaused))
			Expect(res.Reply).To(ContainSubstring("¡Hola Ana!"))
			Expect(res.Reply).To(ContainSubstring("MEC-001"))
			Expect(st.Draft["line"]).To(Equal("Línea 1"))
			Expect(st.Draft["shift"]).To(Equal("Mañana"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
		})

		It("still greets when the recent-ticket lookup fails", func() {
			profiles.getFn = func(context.Context, string) (*model.Profile, error) {
				return registeredProfile(), nil
			}
			tickets.listRecentFn = func(context.Context, string, int) ([]model.TicketSummary, error) {
				return nil, errors.New("db down")
			}
			build()

			res := send("hola")

			Expect(res.Reply).To(ContainSubstring("¡Hola Ana!"))
			Expect(res.Control).To(Equal(convo.ControlPaused))
		})

		It("asks an unknown operator for their name", func() {
			build()

			res := send("hola")

			Expect(res.Reply).To(ContainSubstring("¿Cuál es tu nombre?"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitName))
		})
	})

	Describe("registration", func() {
		BeforeEach(func() {
			build()
			send("hola")
		})

		It("registers the operator and moves on to the description", func() {
			extractor.extractFn = func(_ context.Context, text string) (convo.ExtractedProfile, error) {
				return convo.ExtractedProfile{Name: "Luis García", Shift: "Noche"}, nil
			}

			res := send("soy Luis García, turno de noche")

			Expect(res.Reply).To(ContainSubstring("Luis García"))
			Expect(profiles.upserted).To(HaveLen(1))
			Expect(profiles.upserted[0].Shift).To(Equal("Noche"))
			Expect(st.Draft["shift"]).To(Equal("Noche"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
		})

		It("re-asks when no name can be extracted", func() {
			extractor.extractFn = func(context.Context, string) (convo.ExtractedProfile, error) {
				return convo.ExtractedProfile{}, nil
			}

			res := send("asdfgh")

			Expect(res.Reply).To(ContainSubstring("No pude captar tu nombre"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitName))
			Expect(st.Retries).To(Equal(1))
		})
	})

	Describe("description and classification", func() {
		BeforeEach(openConversation)

		It("classifies a text description and presents candidates", func() {
			res := send("se rompió la banda transportadora en empaque")

			Expect(res.Reply).To(ContainSubstring("MEC-001"))
			Expect(res.Reply).To(ContainSubstring("92% confianza"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitClassChoice))
			Expect(classifier.callCount).To(Equal(1))
		})

		It("keeps the description open while media keeps arriving", func() {
			res, err := engine.Advance(ctx, st, &convo.Input{
				Media: []model.Attachment{{
					Kind:        model.MediaKindAudio,
					Filename:    "wamid.1.ogg",
					Description: "se escucha un ruido fuerte en la banda",
				}},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Reply).To(ContainSubstring("nota de voz"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
			Expect(classifier.callCount).To(BeZero())
			Expect(st.Attachments).To(HaveLen(1))

			res = send("la banda se detuvo por completo")

			Expect(st.PendingDescription).To(ContainSubstring("Transcripción de audio"))
			Expect(st.PendingDescription).To(ContainSubstring("la banda se detuvo por completo"))
			Expect(res.Reply).To(ContainSubstring("MEC-001"))
			Expect(classifier.callCount).To(Equal(1))
		})

		It("re-asks when the description is empty", func() {
			res := send("   ")

			Expect(res.Reply).To(ContainSubstring("Necesito que me cuentes qué pasó"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
			Expect(classifier.callCount).To(BeZero())
		})

		It("recovers from a classifier failure by re-asking the description", func() {
			classifier.classifyFn = func(context.Context, string, string) ([]convo.Candidate, error) {
				return nil, errors.New("model unavailable")
			}

			res := send("se rompió la banda")

			Expect(res.Reply).To(ContainSubstring("No pude clasificar el incidente"))
			Expect(st.CurrentStep).To(Equal(convo.StepCollectDescription))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
			Expect(res.Control).To(Equal(convo.ControlPaused))
		})

		It("treats zero candidates as a classification failure", func() {
			classifier.classifyFn = func(context.Context, string, string) ([]convo.Candidate, error) {
				return nil, nil
			}

			res := send("se rompió la banda")

			Expect(res.Reply).To(ContainSubstring("No pude clasificar el incidente"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
		})
	})

	Describe("candidate selection", func() {
		BeforeEach(func() {
			openConversation()
			send("se rompió la banda transportadora en empaque")
		})

		It("selects by number and auto-fills the draft from the catalog", func() {
			res := send("1")

			Expect(res.Reply).To(ContainSubstring("Seleccionado"))
			Expect(st.SelectedCode).To(Equal("MEC-001"))
			Expect(st.Draft["code"]).To(Equal("MEC-001"))
			Expect(st.Draft["severity"]).To(Equal("HIGH"))
			Expect(st.Draft["immediate_action"]).To(ContainSubstring("Detener la línea"))
			// line and shift came from the profile; plant, work_cell and
			// machine are still owed.
			Expect(st.MissingFields).To(Equal([]string{"plant", "work_cell", "machine"}))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitFieldValue))
		})

		It("returns to the description when the operator answers 'ninguno'", func() {
			res := send("ninguno")

			Expect(res.Reply).To(ContainSubstring("más detalle"))
			Expect(st.SelectedCode).To(BeEmpty())
			Expect(st.Candidates).To(BeEmpty())
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
		})

		It("re-asks on an out-of-range number", func() {
			res := send("7")

			Expect(res.Reply).To(ContainSubstring("No entendí tu selección"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitClassChoice))
			Expect(st.Retries).To(Equal(1))
		})
	})

	Describe("free-form candidate selection", func() {
		BeforeEach(func() {
			interpreter = &mockInterpreter{interpretFn: func(_ context.Context, reply string, _ []convo.Candidate) (int, error) {
				switch {
				case strings.Contains(reply, "banda"):
					return 0, nil
				case strings.Contains(reply, "nada"):
					return convo.ChoiceNone, nil
				default:
					return convo.ChoiceUnknown, nil
				}
			}}
			openConversation()
			send("se rompió la banda transportadora en empaque")
		})

		It("maps a free-form reply onto a candidate", func() {
			res := send("la de la banda")

			Expect(res.Reply).To(ContainSubstring("Seleccionado"))
			Expect(st.SelectedCode).To(Equal("MEC-001"))
		})

		It("treats an interpreted rejection as 'none of these'", func() {
			res := send("nada de eso")

			Expect(res.Reply).To(ContainSubstring("más detalle"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitDescription))
		})

		It("re-prompts in place when the reply cannot be mapped", func() {
			res := send("qwerty asdf")

			Expect(res.Reply).To(ContainSubstring("No entendí tu selección"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitClassChoice))
			Expect(st.Candidates).To(HaveLen(2))
			Expect(st.Retries).To(Equal(1))
		})
	})

	Describe("field collection", func() {
		BeforeEach(func() {
			openConversation()
			send("se rompió la banda transportadora en empaque")
			send("1")
		})

		It("asks for the missing fields one at a time", func() {
			Expect(st.CurrentField).To(Equal("plant"))

			res := send("Planta Norte")
			Expect(st.Draft["plant"]).To(Equal("Planta Norte"))
			Expect(res.Reply).To(ContainSubstring("Celda de trabajo"))

			res = send("Celda 3")
			Expect(res.Reply).To(ContainSubstring("Máquina"))

			res = send("Clasificadora MOBA")
			Expect(res.Reply).To(ContainSubstring("Resumen del incidente"))
			Expect(st.MissingFields).To(BeEmpty())
			Expect(st.AwaitingInput).To(Equal(convo.AwaitConfirmation))
		})

		It("re-asks the same field on an empty answer", func() {
			res := send("  ")

			Expect(res.Reply).To(ContainSubstring("Necesito un valor"))
			Expect(st.CurrentField).To(Equal("plant"))
			Expect(st.Retries).To(Equal(1))
		})
	})

	Describe("selection needing no additional fields", func() {
		It("goes straight to the summary without prompting", func() {
			classifier.classifyFn = func(context.Context, string, string) ([]convo.Candidate, error) {
				return []convo.Candidate{{Code: "OPS-001", Label: "Paro menor de línea", Confidence: 0.8}}, nil
			}
			openConversation()
			send("la línea se detuvo unos minutos")

			res := send("1")

			Expect(res.Reply).To(ContainSubstring("Resumen del incidente"))
			Expect(st.MissingFields).To(BeEmpty())
			Expect(st.CurrentField).To(BeEmpty())
			Expect(st.AwaitingInput).To(Equal(convo.AwaitConfirmation))
		})
	})

	Describe("confirmation", func() {
		BeforeEach(func() {
			openConversation()
			reachSummary()
		})

		It("saves on confirm and resets for the next ticket", func() {
			res := send("1")

			Expect(res.Control).To(Equal(convo.ControlTerminated))
			Expect(res.Reply).To(ContainSubstring("Folio"))
			Expect(res.Ticket).NotTo(BeNil())
			Expect(tickets.saved).To(HaveLen(1))

			saved := tickets.saved[0]
			Expect(saved.Code).To(Equal("MEC-001"))
			Expect(saved.ReportedBy).To(Equal(identity))
			Expect(saved.Plant).To(Equal("Planta Norte"))
			Expect(*saved.Machine).To(Equal("Clasificadora MOBA"))
			Expect(saved.Status).To(Equal(model.TicketStatusOpen))

			Expect(st.CurrentStep).To(Equal(convo.StepGreeting))
			Expect(st.Draft).To(BeEmpty())
			Expect(st.AwaitingInput).To(Equal(convo.AwaitNone))
		})

		It("accepts word confirmations", func() {
			res := send("sí, confirmo")

			Expect(res.Control).To(Equal(convo.ControlTerminated))
			Expect(tickets.saved).To(HaveLen(1))
		})

		It("cancels without saving", func() {
			res := send("3")

			Expect(res.Control).To(Equal(convo.ControlTerminated))
			Expect(res.Reply).To(ContainSubstring("Reporte cancelado"))
			Expect(tickets.saved).To(BeEmpty())
			Expect(st.Draft).To(BeEmpty())
		})

		It("re-prompts on an unrecognized reply", func() {
			res := send("tal vez")

			Expect(res.Reply).To(ContainSubstring("Responde 1 para confirmar"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitConfirmation))
			Expect(st.Retries).To(Equal(1))
		})

		It("cancels the ticket after too many unrecognized replies", func() {
			var res convo.Result
			for i := 0; i < 5; i++ {
				res = send("tal vez")
			}

			Expect(res.Control).To(Equal(convo.ControlTerminated))
			Expect(res.Reply).To(ContainSubstring("cancelé el reporte"))
			Expect(tickets.saved).To(BeEmpty())
			Expect(st.Retries).To(BeZero())
			Expect(st.CurrentStep).To(Equal(convo.StepGreeting))
		})
	})

	Describe("editing", func() {
		BeforeEach(func() {
			openConversation()
			reachSummary()
		})

		It("re-collects the chosen field and shows the summary again", func() {
			res := send("2")
			Expect(res.Reply).To(ContainSubstring("¿Qué campo deseas editar?"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitEditField))

			res = send("turno")
			Expect(res.Reply).To(ContainSubstring("Turno actual"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitFieldValue))

			res = send("Noche")
			Expect(st.Draft["shift"]).To(Equal("Noche"))
			Expect(res.Reply).To(ContainSubstring("Resumen del incidente"))
			Expect(res.Reply).To(ContainSubstring("Noche"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitConfirmation))
		})

		It("re-asks on an unknown field name", func() {
			send("2")
			res := send("color")

			Expect(res.Reply).To(ContainSubstring("No reconocí el campo"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitEditField))
		})
	})

	Describe("save failures", func() {
		BeforeEach(func() {
			openConversation()
			reachSummary()
		})

		It("keeps the draft and lets the operator retry", func() {
			saveErr := errors.New("db down")
			tickets.saveFn = func(context.Context, *model.Ticket, []model.Attachment, *model.Profile) error {
				return saveErr
			}

			res := send("1")

			Expect(res.Control).To(Equal(convo.ControlPaused))
			Expect(res.Reply).To(ContainSubstring("error al guardar"))
			Expect(st.Draft["code"]).To(Equal("MEC-001"))
			Expect(st.AwaitingInput).To(Equal(convo.AwaitConfirmation))

			tickets.saveFn = nil
			res = send("1")

			Expect(res.Control).To(Equal(convo.ControlTerminated))
			Expect(res.Reply).To(ContainSubstring("Folio"))
		})
	})

	Describe("checkpointing", func() {
		BeforeEach(openConversation)

		It("resumes mid-flow from a checkpoint snapshot", func() {
			send("se rompió la banda transportadora en empaque")
			send("1")

			restored, err := checkpoints.Load(ctx, identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored).NotTo(BeNil())
			Expect(restored.CurrentStep).To(Equal(st.CurrentStep))
			Expect(restored.AwaitingInput).To(Equal(st.AwaitingInput))
			Expect(restored.Draft).To(Equal(st.Draft))
			Expect(restored.MissingFields).To(Equal(st.MissingFields))

			// The restored snapshot continues exactly where the original
			// conversation paused.
			st = restored
			res := send("Planta Norte")
			Expect(st.Draft["plant"]).To(Equal("Planta Norte"))
			Expect(res.Reply).To(ContainSubstring("Celda de trabajo"))
		})

		It("replays a duplicate delivery from the prior checkpoint identically", func() {
			send("se rompió la banda transportadora en empaque")

			// The checkpoint written at the last pause is the state a retry
			// would start from.
			before, err := checkpoints.Load(ctx, identity)
			Expect(err).NotTo(HaveOccurred())

			res := send("1")

			replayRes, err := engine.Advance(ctx, before, &convo.Input{Text: "1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(replayRes.Reply).To(Equal(res.Reply))
			Expect(replayRes.Control).To(Equal(res.Control))

			Expect(before.CurrentStep).To(Equal(st.CurrentStep))
			Expect(before.AwaitingInput).To(Equal(st.AwaitingInput))
			Expect(before.SelectedCode).To(Equal(st.SelectedCode))
			Expect(before.Draft).To(Equal(st.Draft))
			Expect(before.MissingFields).To(Equal(st.MissingFields))
			Expect(before.CurrentField).To(Equal(st.CurrentField))
		})

		It("checkpoints after every pause", func() {
			for i, text := range []string{"se rompió la banda transportadora en empaque", "1", "Planta Norte"} {
				send(text)
				snapshot, err := checkpoints.Load(ctx, identity)
				Expect(err).NotTo(HaveOccurred(), fmt.Sprintf("message %d", i))
				Expect(snapshot.CurrentStep).To(Equal(st.CurrentStep))
			}
		})
	})
})
