/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package transform

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	_TC_HASH1           = int32(200002979)
	_TC_HASH2           = int32(50004239)
	_TC_MIN_WORD_LENGTH = 2
	_TC_MAX_WORD_LENGTH = 31
	_TC_RESERVED_WORDS  = 2 // literal escape1, literal escape2
	_TC_SEED_CAPACITY   = 1024
)

// dictEntry is a word of the dictionary: buf[pos:pos+length] with the
// full hash of these bytes and the index assigned to the word.
type dictEntry struct {
	hash   int32
	pos    int
	length int
	idx    int
	buf    []byte
}

func (this *dictEntry) word() []byte {
	return this.buf[this.pos : this.pos+this.length]
}

// seedDictionary is an immutable list of words unpacked from a blob.
// Entry indexes start after the reserved entries.
type seedDictionary struct {
	entries []dictEntry
	blob    []byte
}

var (
	_TC_DELIMITER_CHARS = initDelimiterChars()
	_TC_TEXT_CHARS      = initTextChars()

	_TC_DEFAULT_SEED = mustUnpackDictionary(_TC_DICT_EN_1024, _TC_SEED_CAPACITY)
)

func initDelimiterChars() [256]bool {
	var res [256]bool

	for i := range res {
		if (i >= ' ') && (i <= '/') { // [ !"#$%&'()*+,-./]
			res[i] = true
			continue
		}

		if (i >= ':') && (i <= '?') { // [:;<=>?]
			res[i] = true
			continue
		}

		switch i {
		case '\n', '\r', '\t', '_', '|', '{', '}', '[', ']':
			res[i] = true
		}
	}

	return res
}

func initTextChars() [256]bool {
	var res [256]bool

	for i := 'A'; i <= 'Z'; i++ {
		res[i] = true
		res[i+32] = true
	}

	return res
}

func isText(val byte) bool {
	return _TC_TEXT_CHARS[val]
}

func isUpperCase(val byte) bool {
	return (val >= 'A') && (val <= 'Z')
}

func isDelimiter(val byte) bool {
	return _TC_DELIMITER_CHARS[val]
}

func hashWord(buf []byte) int32 {
	h := _TC_HASH1

	for _, c := range buf {
		h = h*_TC_HASH1 ^ int32(c)*_TC_HASH2
	}

	return h
}

// hashWordPair returns the hash of buf and the hash of buf with the case
// of its first letter flipped.
func hashWordPair(buf []byte) (int32, int32) {
	h0 := _TC_HASH1
	h1 := h0*_TC_HASH1 ^ int32(buf[0])*_TC_HASH2
	h2 := h0*_TC_HASH1 ^ int32(buf[0]^0x20)*_TC_HASH2

	for _, c := range buf[1:] {
		h := int32(c) * _TC_HASH2
		h1 = h1*_TC_HASH1 ^ h
		h2 = h2*_TC_HASH1 ^ h
	}

	return h1, h2
}

// unpackDictionary splits a blob of capitalized words ("TheBeAndOf") into
// lower case words. Bytes that are not letters are ignored. At most maxWords
// words are kept.
func unpackDictionary(blob []byte, maxWords int) (*seedDictionary, error) {
	words := make([]byte, 0, len(blob))

	for _, c := range blob {
		if isText(c) {
			words = append(words, c)
		}
	}

	if len(words) == 0 {
		return nil, errors.New("Invalid text dictionary: no word found")
	}

	res := &seedDictionary{blob: words, entries: make([]dictEntry, 0, 256)}
	anchor := 0

	addWord := func(end int) error {
		if end-anchor > _TC_MAX_WORD_LENGTH {
			return fmt.Errorf("Invalid text dictionary: word at offset %d is longer than %d", anchor, _TC_MAX_WORD_LENGTH)
		}

		idx := _TC_RESERVED_WORDS + len(res.entries)
		res.entries = append(res.entries, dictEntry{buf: words, pos: anchor, length: end - anchor,
			hash: hashWord(words[anchor:end]), idx: idx})
		anchor = end
		return nil
	}

	for i := range words {
		if isUpperCase(words[i]) {
			words[i] ^= 0x20

			if i > anchor {
				if err := addWord(i); err != nil {
					return nil, err
				}

				if len(res.entries) == maxWords {
					return res, nil
				}
			}
		}
	}

	if err := addWord(len(words)); err != nil {
		return nil, err
	}

	return res, nil
}

func mustUnpackDictionary(blob string, maxWords int) *seedDictionary {
	res, err := unpackDictionary([]byte(blob), maxWords)

	if err != nil {
		panic(err)
	}

	return res
}

// textDictionary assigns indexes to words in order of first occurrence.
// The same sequence of add() calls always yields the same indexes: the
// inverse transform replays the forward insertions from the literal words
// it decodes.
type textDictionary struct {
	entries  []dictEntry
	table    []*dictEntry // open addressing, linear probing
	hashMask int32
	seed     *seedDictionary
	size     int // number of valid entries
}

func newTextDictionary(seed *seedDictionary, logHashSize uint, capacity int, escape1, escape2 byte) *textDictionary {
	this := &textDictionary{}
	this.entries = make([]dictEntry, capacity)
	this.table = make([]*dictEntry, 1<<logHashSize)
	this.hashMask = int32(1<<logHashSize) - 1
	this.seed = seed
	esc := []byte{escape1, escape2}
	this.entries[0] = dictEntry{buf: esc, pos: 0, length: 1, idx: 0, hash: hashWord(esc[0:1])}
	this.entries[1] = dictEntry{buf: esc, pos: 1, length: 1, idx: 1, hash: hashWord(esc[1:2])}
	this.reset()
	return this
}

// reset drops the words added since the last reset and restores the seed words.
func (this *textDictionary) reset() {
	clear(this.table)
	this.size = _TC_RESERVED_WORDS

	for i := range this.seed.entries {
		e := &this.entries[this.size]
		*e = this.seed.entries[i]
		this.size++

		// Duplicate seed words keep their index but are not reachable by hash
		if this.find(e.buf, e.pos, e.length, e.hash) == nil {
			this.insert(e)
		}
	}
}

func (this *textDictionary) insert(e *dictEntry) {
	slot := e.hash & this.hashMask

	for this.table[slot] != nil {
		slot = (slot + 1) & this.hashMask
	}

	this.table[slot] = e
}

// find returns the entry matching buf[pos:pos+length] or nil. A match
// requires the same full hash, the same length and the same bytes.
func (this *textDictionary) find(buf []byte, pos, length int, h int32) *dictEntry {
	slot := h & this.hashMask
	word := buf[pos : pos+length]

	for e := this.table[slot]; e != nil; e = this.table[slot] {
		if e.hash == h && e.length == length && bytes.Equal(e.word(), word) {
			return e
		}

		slot = (slot + 1) & this.hashMask
	}

	return nil
}

// lookup tries the exact word first (hash h1), then the word with the case
// of its first letter flipped (hash h2). The boolean is true when the entry
// found differs from the word by that flip.
func (this *textDictionary) lookup(buf []byte, pos, length int, h1, h2 int32) (*dictEntry, bool) {
	if e := this.find(buf, pos, length, h1); e != nil {
		return e, false
	}

	slot := h2 & this.hashMask
	word := buf[pos : pos+length]

	for e := this.table[slot]; e != nil; e = this.table[slot] {
		if e.hash == h2 && e.length == length {
			w := e.word()

			if w[0] == word[0]^0x20 && bytes.Equal(w[1:], word[1:]) {
				return e, true
			}
		}

		slot = (slot + 1) & this.hashMask
	}

	return nil, false
}

// add registers buf[pos:pos+length] with the next index. Returns the index
// or -1 if the dictionary is full. The caller checks that the word is absent.
func (this *textDictionary) add(buf []byte, pos, length int, h int32) int {
	if this.size >= len(this.entries) {
		return -1
	}

	e := &this.entries[this.size]
	*e = dictEntry{buf: buf, pos: pos, length: length, hash: h, idx: this.size}
	this.size++
	this.insert(e)
	return e.idx
}

// get returns the entry with the given index or nil if not assigned yet.
func (this *textDictionary) get(idx int) *dictEntry {
	if idx < 0 || idx >= this.size {
		return nil
	}

	return &this.entries[idx]
}

// words returns the number of assigned indexes, reserved ones included.
func (this *textDictionary) words() int {
	return this.size
}

// Default dictionary: 1024 of the most common English words with at least 2 chars.
const _TC_DICT_EN_1024 = `TheBeAndOfInToWithItThatForYouHeHaveOnSaidSayAtButWeByHadTheyAsW
ouldWhoOrCanMayDoThisWasIsMuchAnyFromNotSheWhatTheirWhichGetGive
HasAreHimHerComeMyOurWereWillSomeBecauseThereThroughTellWhenWork
ThemYetUpOwnOutIntoJustCouldOverOldThinkDayWayThanLikeOtherHowTh
enItsPeopleTwoMoreTheseBeenNowWantFirstNewUseSeeTimeManManyThing
MakeHereWellOnlyHisVeryAfterWithoutAnotherNoAllBelieveBeforeOffT
houghSoAgainstWhileLastTooDownTodaySameBackTakeEachDifferentWher
eBetweenThoseEvenSeenUnderAboutOneAlsoFactMustActuallyPreventExp
ectContainConcernIfSchoolYearGoingCannotDueEverTowardGirlFirmGla
ssGasKeepWorldStillWentShouldSpendStageDoctorMightJobGoContinueE
veryoneNeverAnswerFewMeanDifferenceTendNeedLeaveTryNiceHoldSomet
hingAskWarmLipCoverIssueHappenTurnLookSureDiscoverFightMadDirect
ionAgreeSomeoneFailRespectNoticeChoiceBeginThreeSystemLevelFeelM
eetCompanyBoxShowPlayLiveLetterEggNumberOpenProblemFatHandMeasur
eQuestionCallRememberCertainPutNextChairStartRunRaiseGoalReallyH
omeTeaCandidateMoneyBusinessYoungGoodCourtFindKnowKindHelpNightC
hildLotYourUsEyeYesWordBitVanMonthHalfLowMillionHighOrganization
RedGreenBlueWhiteBlackYourselfEightBothLittleHouseLetDespiteProv
ideServiceHimselfFriendDescribeFatherDevelopmentAwayKillTripHour
GameOftenPlantPlaceEndAmongSinceStandDesignParticularSuddenlyMem
berPayLawBookSilenceAlmostIncludeAgainEitherToolFourOnceLeastExp
lainIdentifyUntilSiteMinuteCoupleWeekMatterBringDetailInformatio
nNothingAnythingEverythingAgoLeadSometimesUnderstandWhetherNatur
eTogetherFollowParentStopIndeedDifficultPublicAlreadySpeakMainta
inRemainHearAllowMediaOfficeBenefitDoorHugPersonLaterDuringWarHi
storyArgueWithinSetArticleStationMorningWalkEventWinChooseBehavi
orShootFireFoodTitleAroundAirTeacherGapSubjectEnoughProveAcrossA
lthoughHeadFootSecondBoyMainLieAbleCivilTableLoveProcessOfferStu
dentConsiderAppearStudyBuyNearlyHumanEvidenceTextMethodIncluding
SendRealizeSenseBuildControlAudienceSeveralCutCollegeInterestSuc
cessSpecialRiskExperienceBehindBetterResultTreatFiveRelationship
AnimalImproveHairStayTopReducePerhapsLateWriterPickElseSignifica
ntChanceHotelGeneralRockRequireAlongFitThemselvesReportCondition
ReachTruthEffortDecideRateEducationForceGardenDrugLeaderVoiceQui
teWholeSeemMindFinallySirReturnFreeStoryRespondPushAccordingBrot
herLearnSonHopeDevelopFeelingReadCarryDiseaseRoadVariousBallCase
OperationCloseVisitReceiveBuildingValueResearchFullModelJoinSeas
onKnownDirectorPositionPlayerSportErrorRecordRowDataPaperTheoryS
paceEveryFormSupportActionOfficialWhoseIdeaHappyHeartBestTeamPro
jectHitBaseRepresentTownPullBusMapDryMomCatDadRoomSmileFieldImpa
ctFundLargeDogHugePrepareEnvironmentalProduceHerselfTeachOilSuch
SituationTieCostIndustrySkinStreetImageItselfPhonePriceWearMostS
unSoonClearPracticePieceWaitRecentImportantProductLeftWallSeries
NewsShareMovieKidNorSimplyWifeOntoCatchMyselfFineComputerSongAtt
entionDrawFilmRepublicanSecurityScoreTestStockPositiveCauseCentu
ryWindowMemoryExistListenStraightCultureBillionFormerDecisionEne
rgyMoveSummerWonderRelateAvailableLineLikelyOutsideShotShortCoun
tryRoleAreaSingleRuleDaughterMarketIndicatePresentLandCampaignMa
terialPopulationEconomyMedicalHospitalChurchGroundThousandAuthor
ityInsteadRecentlyFutureWrongInvolveLifeHeightIncreaseRightBankC
ulturalCertainlyWestExecutiveBoardSeekLongOfficerStatementRestBa
yDealWorkerResourceThrowForwardPolicyScienceEyesBedItemWeaponFil
lPlanMilitaryGunHotHeatAddressColdFocusForeignTreatmentBloodUpon
CourseThirdWatchAffectEarlyStoreThusSoundEverywhereBabyAdministr
ationMouthPageEnterProbablyPointSeatNaturalRaceFarChallengePassA
pplyMailUsuallyMixToughClearlyGrowFactorStateLocalGuyEastSaveSou
thSceneMotherCareerQuicklyCentralFaceIceAboveBeyondPictureNetwor
kManagementIndividualWomanSizeSpeedBusySeriousOccurAddReadySignC
ollectionListApproachChargeQualityPressureVoteNotePartRealWebCur
rentDetermineTrueSadWhateverBreakWorryCupParticularlyAmountAbili
tyEatRecognizeSitCharacterSomebodyLossDegreeEffectAttackStaffMid
dleTelevisionWhyLegalCapitalTradeElectionEverybodyDropMajorViewS
tandardBillEmployeeDiscussionOpportunityAnalysisTenSuggestLawyer
HusbandSectionBecomeSkillSisterStyleCrimeProgramCompareCapMissBa
dSortTrainingEasyNearRegionStrategyPurposePerformTechnologyEcono
micBudgetExampleCheckEnvironmentDoneDarkTermRatherLaughGuessCarL
owerHangPastSocialForgetHundredRemoveManagerEnjoyExactlyDieFinal
MaybeHealthFloorChangeAmericanPoorFunEstablishTrialSpringDinnerB
igThankProtectAvoidImagineTonightStarArmFinishMusicOwnerCryArtPr
ivateOthersSimplePopularReflectEspeciallySmallLightMessageStepKe
yPeaceProgressMadeSideGreatFixInterviewManageNationalFishLoseCam
eraDiscussEqualWeightPerformanceSevenWaterProductionPersonalCell
PowerEveningColorInsideBarUnitLessAdultWideRangeMentionDeepEdgeS
trongHardTroubleNecessarySafeCommonFearFamilySeaDreamConferenceR
eplyPropertyMeetingAlwaysStuffAgencyDeathGrowthSellSoldierActHea
vyWetBagMarriageDeadSingRiseDecadeWhomFigurePoliceBodyMachineCat
egoryAheadFrontCareOrderRealityPartnerYardBeatViolenceTotalDefen
seWriteConsumerCenterGroupThoughtModernTaskCoachReasonAgeFingerS
pecificConnectionWishResponsePrettyMovementCardLogNumberSumTreeE
ntireCitizenThroughoutPetSimilarVictimNewspaperThreatClassShakeS
ourceAccountPainFallRichPossibleAcceptSolidTravelTalkSaidCreateN
onePlentyPeriodDefineNormalRevealDrinkAuthorServeNameMomentAgent
DocumentActivityAnywayAfraidTypeActiveTrainInterestingRadioDange
rGenerationLeafCopyMatchClaimAnyoneSoftwarePartyDeviceCodeLangua
geLinkHoweverConfirmCommentCityAnywhereSomewhereDebateDriveHighe
rBeautifulOnlineFanPriorityTraditionalSixUnited`
