package rotation

import "github.com/genricoloni/nowshowing/internal/domain"

// ResolvePresentation computes the overlays and side effects for a poster.
//
// Badge precedence: use_global_prologos forces the settings badges; otherwise
// use_global_prologos_if_no_poster_prologos applies them only when the poster
// sets none of its six flags; otherwise the poster's own flags win.
func ResolvePresentation(poster domain.Poster, settings domain.Settings) domain.PresentationFlags {
	flags := domain.PresentationFlags{
		MpaaRating: poster.MpaaRating,
	}

	// zero means unrated
	if poster.AudienceRating != nil && *poster.AudienceRating > 0 {
		halved := *poster.AudienceRating / 2
		flags.AudienceRating = &halved
	}

	if settings.ShowRuntime && poster.Runtime > 0 {
		runtime := poster.Runtime
		flags.Runtime = &runtime
	}

	if poster.TrailerPath != "" && poster.ShowTrailer {
		flags.PlayTrailer = true
		flags.TrailerPath = poster.TrailerPath
	}

	if poster.PlayThemeMusic && poster.ThemeMusicPath != "" && settings.PlayThemeMusic {
		flags.PlayThemeMusic = true
		flags.ThemeMusicPath = poster.ThemeMusicPath
	}

	switch {
	case settings.UseGlobalProLogos:
		flags.ProLogos = settings.ProLogos()
	case settings.UseGlobalIfNoProLogos && !poster.PosterProLogos.Any():
		flags.ProLogos = settings.ProLogos()
	default:
		flags.ProLogos = poster.PosterProLogos.Flags()
	}

	return flags
}
