package convo

import (
	"fmt"
	"strings"

	"fieldops.app/incidentbot/internal/catalog"
	"fieldops.app/incidentbot/internal/model"
)

// User-facing message builders. All conversation text is Spanish; keep the
// wording here so handlers stay about flow, not copy.

func msgGreetingKnown(name string, recent []model.TicketSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Hola %s! 👋 Soy tu asistente de incidentes.", name)
	if len(recent) > 0 {
		last := recent[0]
		fmt.Fprintf(&b, "\nTu último reporte fue: %s – %s.", last.Code, last.Name)
	}
	b.WriteString("\n¿Qué incidente deseas reportar hoy? Descríbelo con tus palabras.")
	return b.String()
}

func msgGreetingNew() string {
	return "¡Hola! Soy tu asistente de incidentes de la planta. " +
		"No te tengo registrado aún.\n¿Cuál es tu nombre?"
}

func msgRegistered(name string) string {
	return fmt.Sprintf("¡Encantado, %s! Te he registrado. 😊\n"+
		"¿Qué incidente deseas reportar? Descríbelo con tus palabras.", name)
}

func msgNameNotUnderstood() string {
	return "No pude captar tu nombre. ¿Podrías repetirlo?"
}

func msgCandidates(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("He identificado los siguientes incidentes posibles:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n  %d. *%s* – %s (%d%% confianza)", i+1, c.Code, c.Label, int(c.Confidence*100))
		if c.Reason != "" {
			fmt.Fprintf(&b, "\n     _%s_", c.Reason)
		}
	}
	fmt.Fprintf(&b, "\n\n¿Cuál es el correcto? Responde con el número (1-%d) o escribe 'ninguno' si no aplica.", len(candidates))
	return b.String()
}

func msgClassificationFailed() string {
	return "No pude clasificar el incidente. ¿Puedes describirlo de otra forma?"
}

func msgMediaFailed() string {
	return "No pude procesar el archivo que enviaste. ¿Puedes describir el incidente con texto?"
}

func msgMediaReceived(media []model.Attachment) string {
	kind := media[0].Kind
	ack := "Recibí tu imagen 📷."
	if kind == model.MediaKindAudio {
		ack = "Recibí tu nota de voz 🎙️."
	}
	return ack + " ¿Quieres agregar algo más? Escribe los detalles, o el siguiente mensaje de texto cerrará la descripción."
}

func msgDescriptionEmpty() string {
	return "Necesito que me cuentes qué pasó. Describe el incidente con tus palabras, " +
		"o envía una foto o nota de voz."
}

func msgInternalError() string {
	return "Algo salió mal de mi lado y reinicié la conversación. " +
		"Envía un mensaje para empezar de nuevo, disculpa las molestias."
}

func msgNoneRetryDescription() string {
	return "Entendido. ¿Podrías describir el incidente con más detalle?"
}

func msgChoiceNotUnderstood(n int) string {
	return fmt.Sprintf("No entendí tu selección. ¿Puedes indicar el número (1-%d) o 'ninguno'?", n)
}

func msgSelected(e catalog.Entry) string {
	return fmt.Sprintf("✅ Seleccionado: *%s* – %s\nSeveridad: %s | Categoría: %s\n\n"+
		"Ahora necesito algunos datos adicionales para completar el reporte.",
		e.Code, e.Name, e.Severity, e.Category)
}

func msgFieldQuestion(spec FieldSpec) string {
	q := "📝 " + spec.Description
	if spec.Example != "" {
		q += fmt.Sprintf("\n   (Ejemplo: %s)", spec.Example)
	}
	return q
}

func msgFieldEmpty() string {
	return "Necesito un valor para continuar. Inténtalo de nuevo."
}

func msgSummary(draft map[string]string, attachments int) string {
	val := func(key string) string {
		if v := strings.TrimSpace(draft[key]); v != "" {
			return v
		}
		return "N/A"
	}

	var b strings.Builder
	b.WriteString("📋 *Resumen del incidente:*\n")
	fmt.Fprintf(&b, "\n- *Código:* %s", val("code"))
	fmt.Fprintf(&b, "\n- *Nombre:* %s", val("name"))
	fmt.Fprintf(&b, "\n- *Categoría:* %s", val("category"))
	fmt.Fprintf(&b, "\n- *Severidad:* %s", val("severity"))
	fmt.Fprintf(&b, "\n- *Planta:* %s", val("plant"))
	fmt.Fprintf(&b, "\n- *Línea:* %s", val("line"))
	fmt.Fprintf(&b, "\n- *Celda de trabajo:* %s", val("work_cell"))
	fmt.Fprintf(&b, "\n- *Turno:* %s", val("shift"))
	fmt.Fprintf(&b, "\n- *Descripción:* %s", val("description"))
	fmt.Fprintf(&b, "\n- *Acción inmediata:* %s", val("immediate_action"))
	for _, opt := range []struct{ key, label string }{
		{"machine", "Máquina"},
		{"lot_number", "Lote"},
		{"production_order", "Orden"},
	} {
		if v := strings.TrimSpace(draft[opt.key]); v != "" {
			fmt.Fprintf(&b, "\n- *%s:* %s", opt.label, v)
		}
	}
	if attachments > 0 {
		fmt.Fprintf(&b, "\n- *Adjuntos:* %d", attachments)
	}
	b.WriteString("\n\n¿Deseas:\n1. ✅ Confirmar y guardar\n2. ✏️ Editar un campo\n3. ❌ Cancelar")
	return b.String()
}

func msgConfirmNotUnderstood() string {
	return "No entendí tu respuesta. Responde 1 para confirmar, 2 para editar o 3 para cancelar."
}

func msgEditWhichField() string {
	return fmt.Sprintf("¿Qué campo deseas editar? (%s)", EditableFieldNames())
}

func msgEditFieldUnknown() string {
	return fmt.Sprintf("No reconocí el campo. Opciones: %s.", EditableFieldNames())
}

func msgCancelled() string {
	return "Reporte cancelado."
}

func msgTooManyRetries() string {
	return "No logro entender tus respuestas, así que cancelé el reporte. " +
		"Envía un nuevo mensaje cuando quieras empezar de nuevo."
}

func msgSaved(t *model.Ticket) string {
	return fmt.Sprintf("✅ ¡Incidente guardado exitosamente!\n"+
		"*Folio:* %d\n*Código:* %s – %s\n*Severidad:* %s\n*Estado:* %s",
		t.ID, t.Code, t.Name, t.Severity, t.Status)
}

func msgSaveFailed() string {
	return "Ocurrió un error al guardar el reporte. Tus datos siguen completos: " +
		"responde 1 para intentar guardarlo de nuevo."
}
